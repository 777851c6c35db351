package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
)

// Accepted date layouts for date-only and full timestamp inputs.
const dateLayout = "2006-01-02"

// Validator checks service inputs and reports failures as
// *apperr.ValidationError keyed by JSON field name.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds the validator with the domain rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := RegisterRules(v); err != nil {
		panic("register validation rules: " + err.Error())
	}
	return &Validator{v: v}
}

// Struct validates s.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Unexpected(err)
	}
	out := &apperr.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldPath(fe)] = describe(fe)
	}
	return out
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	case "url":
		return "must be a URL"
	case "date":
		return "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"
	case "teamname":
		return "must contain a letter or digit"
	case "equipmentstatus":
		return fmt.Sprintf("must be one of %v", model.EquipmentStatuses)
	case "requeststatus":
		return `must be one of [New, In Progress, Repaired, Scrap]`
	case "requesttype":
		return "must be one of [Corrective, Preventive]"
	case "priority":
		return "must be one of [Low, Medium, High, Critical]"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// RegisterRules adds the domain validation tags to v.
func RegisterRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"notblank":        isNotBlank,
		"teamname":        isTeamName,
		"date":            isDate,
		"equipmentstatus": oneOf(model.EquipmentActive, model.EquipmentMaintenance, model.EquipmentScrap),
		"requeststatus":   oneOf(model.StatusNew, model.StatusInProgress, model.StatusRepaired, model.StatusScrap),
		"requesttype":     oneOf(model.RequestCorrective, model.RequestPreventive),
		"priority":        oneOf(model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCritical),
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// isTeamName requires at least one letter or digit so the derived login
// name is never empty.
func isTeamName(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

func isDate(fl validator.FieldLevel) bool {
	_, err := parseDate(fl.Field().String())
	return err == nil
}

func oneOf[T ~string](allowed ...T) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, a := range allowed {
			if s == string(a) {
				return true
			}
		}
		return false
	}
}

// parseDate accepts a calendar date or an RFC 3339 timestamp and returns it
// in UTC.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// optionalDate parses a pointer-to-string date. Validation has already
// accepted the value.
func optionalDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil
	}
	return &t
}
