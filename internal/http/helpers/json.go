// Package helpers contiene utilidades HTTP compartidas por los controllers.
package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
)

// MaxBodyBytes limita el body de las requests JSON.
const MaxBodyBytes = 64 << 10

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Reportar nombres de campo como en el JSON.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// ReadJSON decodifica el body en v (tolerante a campos desconocidos) y valida
// los tags `validate`. Un body vacío se acepta y deja v en cero.
// Retorna un *AppError listo para WriteError.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if ct := strings.ToLower(r.Header.Get("Content-Type")); ct != "" && !strings.Contains(ct, "application/json") {
		return httperrors.ErrBadRequest.WithDetail("Content-Type debe ser application/json")
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return httperrors.ErrBodyTooLarge
		}
		return httperrors.ErrInvalidJSON
	}
	return Validate(v)
}

// Validate aplica los tags `validate` de v.
func Validate(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// v no es un struct: nada que validar.
		var inv *validator.InvalidValidationError
		if errors.As(err, &inv) {
			return nil
		}
		return httperrors.ErrBadRequest.WithCause(err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	if len(missing) > 0 {
		return httperrors.ErrMissingFields.WithDetail(strings.Join(missing, ", "))
	}
	return httperrors.ErrInvalidParameter.WithDetail(strings.Join(invalid, ", "))
}

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
