package enum

// ── Payment methods (CHECK constrained in DB) ──

const (
	PaymentMethodCash            = "CASH"
	PaymentMethodDebit           = "DEBIT"
	PaymentMethodCreditCard      = "CREDIT_CARD"
	PaymentMethodTransfer        = "TRANSFER"
	PaymentMethodForeignCurrency = "FOREIGN_CURRENCY"
	PaymentMethodMobilePayment   = "MOBILE_PAYMENT"
	PaymentMethodStoreCredit     = "STORE_CREDIT"
)

// PaymentMethods lists every accepted payment method, in the order the
// cashier UI presents them.
var PaymentMethods = []string{
	PaymentMethodCash,
	PaymentMethodDebit,
	PaymentMethodCreditCard,
	PaymentMethodTransfer,
	PaymentMethodForeignCurrency,
	PaymentMethodMobilePayment,
	PaymentMethodStoreCredit,
}

// IsValidPaymentMethod reports whether s is a known payment method.
func IsValidPaymentMethod(s string) bool {
	for _, m := range PaymentMethods {
		if s == m {
			return true
		}
	}
	return false
}

// ── Credit payment status (CHECK constrained in DB) ──

const (
	CreditPaymentStatusCompleted = "COMPLETED"
	CreditPaymentStatusVoided    = "VOIDED"
)

// ── Credit account status (derived, never stored) ──

const (
	CreditStatusPending = "PENDING"
	CreditStatusOverdue = "OVERDUE"
	CreditStatusPaid    = "PAID"
)

// ── User roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleCashier = "CASHIER"
)
