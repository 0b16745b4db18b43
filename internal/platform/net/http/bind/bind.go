// Package bind decodes and validates JSON request bodies
package bind

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// MaxBodyBytes caps a decoded body, id batches of 10k fit comfortably
const MaxBodyBytes = 1 << 20

var (
	once  sync.Once
	valid *validator.Validate
	trans ut.Translator
)

func validate() (*validator.Validate, ut.Translator) {
	once.Do(func() {
		loc := en.New()
		trans, _ = ut.New(loc, loc).GetTranslator("en")

		valid = validator.New(validator.WithRequiredStructEnabled())
		valid.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = en_translations.RegisterDefaultTranslations(valid, trans)

		// the defaults talk about "items" and "characters", keep it neutral
		short(valid, "min", "{0} must be at least {1}")
		short(valid, "max", "{0} must be at most {1}")
	})
	return valid, trans
}

func short(v *validator.Validate, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// ParseJSON decodes a single JSON document into T and validates it
// unknown fields are rejected, an empty body is only accepted on GET and DELETE
func ParseJSON[T any](r *http.Request) (T, error) {
	var zero T
	defer func() {
		if err := r.Body.Close(); err != nil {
			logger.Get().Warn().Err(err).Msg("closing request body")
		}
	}()

	head := make([]byte, 1)
	n, _ := io.ReadFull(r.Body, head)
	if n == 0 {
		if r.Method == http.MethodGet || r.Method == http.MethodDelete {
			return zero, nil
		}
		return zero, perr.JSONErrf("empty body")
	}

	dec := json.NewDecoder(io.LimitReader(io.MultiReader(bytes.NewReader(head), r.Body), MaxBodyBytes))
	dec.DisallowUnknownFields()

	var dst T
	if err := dec.Decode(&dst); err != nil {
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Validate(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

// Validate runs struct tags on v, the first failing field is attached to the error
func Validate(v any) error {
	vd, tr := validate()
	err := vd.Struct(v)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		logger.Get().Error().Err(err).Msg("validator misuse")
		return perr.JSONErrf("validation error")
	}
	fe := fields[0]
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", fe.Translate(tr)), fe.Field())
}
