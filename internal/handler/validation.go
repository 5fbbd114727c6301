package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/credicuenta/debt-ledger/pkg/utils"
)

// newValidator returns a validator that understands decimal.Decimal fields.
// Amounts compare as decimals through decimal_gt and decimal_gte.
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gt", decimalCompare(func(c int) bool { return c > 0 }))
	_ = v.RegisterValidation("decimal_gte", decimalCompare(func(c int) bool { return c >= 0 }))

	return v
}

func decimalCompare(accept func(int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, err := utils.DecimalFromString(fl.Field().String())
		if err != nil {
			return false
		}
		bound, err := utils.DecimalFromString(fl.Param())
		if err != nil {
			return false
		}
		return accept(value.Cmp(bound))
	}
}
