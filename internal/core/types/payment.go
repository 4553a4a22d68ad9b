package types

// PaymentMethod is how a sale, payment or expense was settled.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "EFECTIVO"
	PaymentCard     PaymentMethod = "TARJETA"
	PaymentTransfer PaymentMethod = "TRANSFERENCIA"
	PaymentAccount  PaymentMethod = "CUENTA_CORRIENTE"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentAccount:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}
