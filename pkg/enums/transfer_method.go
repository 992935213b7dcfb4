package enums

import "fmt"

type TransferMethod string

const (
	TransferMethodProcessor TransferMethod = "processor"
	TransferMethodManual    TransferMethod = "manual"
)

func (m TransferMethod) String() string {
	return string(m)
}

func (m TransferMethod) IsValid() bool {
	return m == TransferMethodProcessor || m == TransferMethodManual
}

func ParseTransferMethod(raw string) (TransferMethod, error) {
	m := TransferMethod(raw)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid transfer method %q", raw)
	}
	return m, nil
}
