package enums

type OutboxEventType string

const (
	OutboxEventOrderCompleted          OutboxEventType = "order.completed"
	OutboxEventOrderFailed             OutboxEventType = "order.failed"
	OutboxEventTransferRecorded        OutboxEventType = "transfer.recorded"
	OutboxEventSupplierOrderDispatched OutboxEventType = "supplier_order.dispatched"
)

func (t OutboxEventType) String() string {
	return string(t)
}

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusTerminal  OutboxStatus = "terminal"
)

func (s OutboxStatus) String() string {
	return string(s)
}
