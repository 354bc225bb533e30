package forge

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/hazyhaar/deckforge/deck"
	"github.com/hazyhaar/deckforge/planner"
)

// GenerateRequest is one text-to-deck request. Either Text or Source must be
// set; Source wins when both are.
type GenerateRequest struct {
	Text       string `json:"text" validate:"required_without=Source"`
	Guidance   string `json:"guidance" validate:"max=4000"`
	Provider   string `json:"provider" validate:"omitempty,provider"`
	Model      string `json:"model" validate:"max=200"`
	APIKey     string `json:"-"`
	Source     []byte `json:"-"`
	SourceName string `json:"source_name" validate:"required_with=Source"`
	Template   []byte `json:"-"`
}

func newValidator(reg *planner.Registry) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	v.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		_, ok := reg.Info(planner.Provider(fl.Field().String()))
		return ok
	})
	return v
}

func (s *Service) validateRequest(req *GenerateRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidInput)
	}
	req.Text = strings.TrimSpace(req.Text)
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	if err := s.validate.Struct(req); err != nil {
		return invalid(err)
	}
	return nil
}

func (s *Service) validateStructure(st *deck.SlideStructure) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.validate.Struct(st); err != nil {
		return invalid(err)
	}
	return nil
}

// invalid turns validator errors into one ErrInvalidInput message.
func invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}
	switch fe.Tag() {
	case "required", "required_without", "required_with":
		return path + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", path, fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", path, fe.Param())
	case "provider":
		return fmt.Sprintf("%s: unknown provider %q", path, fe.Value())
	}
	return fmt.Sprintf("%s fails %s", path, fe.Tag())
}

// checkTemplate accepts zip-based uploads (pptx, potx, bare zip).
func (s *Service) checkTemplate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty template", ErrInvalidInput)
	}
	if max := s.cfg.MaxUploadBytes(); int64(len(data)) > max {
		return fmt.Errorf("%w: template is %d bytes (max %d)", ErrTooLarge, len(data), max)
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return nil
		}
	}
	return fmt.Errorf("%w: detected %s", ErrUnsupportedTemplate, detected.String())
}

const maxFilenameRunes = 80

// Filename derives an attachment name from a deck title: letters and digits
// are kept, every other run of characters becomes one dash.
func Filename(title string) string {
	var b strings.Builder
	n := 0
	pending := false
	for _, r := range title {
		if n >= maxFilenameRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && n > 0 {
				b.WriteByte('-')
				n++
			}
			b.WriteRune(r)
			n++
			pending = false
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "presentation.pptx"
	}
	return b.String() + ".pptx"
}
