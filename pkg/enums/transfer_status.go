package enums

import "fmt"

// TransferStatus tracks a profit payout attempt. pending_manual marks
// transfers that settle outside the processor and wait for an operator.
type TransferStatus string

const (
	TransferStatusPending       TransferStatus = "pending"
	TransferStatusPendingManual TransferStatus = "pending_manual"
	TransferStatusCompleted     TransferStatus = "completed"
	TransferStatusFailed        TransferStatus = "failed"
)

func (s TransferStatus) String() string {
	return string(s)
}

func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPending, TransferStatusPendingManual,
		TransferStatusCompleted, TransferStatusFailed:
		return true
	}
	return false
}

func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed
}

func ParseTransferStatus(raw string) (TransferStatus, error) {
	s := TransferStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid transfer status %q", raw)
	}
	return s, nil
}
