package notes

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Input is the user-editable part of a note.
type Input struct {
	Title   string `json:"title" label:"Title" validate:"required"`
	Content string `json:"content" label:"Content" validate:"required"`
}

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("invalid note")

// FieldError is one failed field.
type FieldError struct {
	Field   string // json name, e.g. "title"
	Message string // e.g. "Title is required"
}

// ValidationError lists the fields of an Input that failed validation,
// in struct order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Message returns the message for field, or "".
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

type inputValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

var (
	validatorOnce sync.Once
	sharedV       *inputValidator
	validatorErr  error
)

func getValidator() (*inputValidator, error) {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if label := fld.Tag.Get("label"); label != "" {
				return label
			}
			return fld.Name
		})

		uni := ut.New(en.New(), en.New())
		trans, _ := uni.GetTranslator("en")
		if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
			validatorErr = err
			return
		}
		// Shorter than the stock "{0} is a required field".
		err := v.RegisterTranslation("required", trans,
			func(ut ut.Translator) error {
				return ut.Add("required", "{0} is required", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T("required", fe.Field())
				return msg
			})
		if err != nil {
			validatorErr = err
			return
		}
		sharedV = &inputValidator{validate: v, trans: trans}
	})
	return sharedV, validatorErr
}

// Validate checks that title and content are both non-empty. It returns
// a *ValidationError, or nil.
func (in Input) Validate() error {
	iv, err := getValidator()
	if err != nil {
		return err
	}
	err = iv.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   strings.ToLower(fe.StructField()),
			Message: fe.Translate(iv.trans),
		})
	}
	return out
}
