package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/credicuenta/debt-ledger/pkg/errors"
	"github.com/credicuenta/debt-ledger/pkg/utils"
)

func validatePositiveAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return customError.WrapValidation(field, "must be greater than 0").
			WithDetail("value", amount.String())
	}
	return validatePrecision(field, amount)
}

func validatePrecision(field string, amount decimal.Decimal) error {
	if !utils.HasMoneyPrecision(amount) {
		return customError.WrapValidation(field, "must have at most 2 decimal places").
			WithDetail("value", amount.String())
	}
	return nil
}

func validateRequiredID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return customError.WrapValidation(field, "is required")
	}
	return nil
}

func validatePaymentMethod(method string) error {
	if strings.TrimSpace(method) == "" {
		return customError.WrapValidation("payment_method_id", "is required")
	}
	return nil
}
