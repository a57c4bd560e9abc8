package settings

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Update is a partial settings change coming from a settings control.
// Nil fields are left untouched.
type Update struct {
	NamespaceFormat     *string   `json:"namespace_format,omitempty"`
	ExcludePatterns     *[]string `json:"exclude_patterns,omitempty"`
	AutoProcessNewFiles *bool     `json:"auto_process_new_files,omitempty"`
	BatchSize           *int      `json:"batch_size,omitempty"`
	ShowProgressBar     *bool     `json:"show_progress_bar,omitempty"`
}

var notBlank = validation.By(func(v any) error {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
})

// Validate enforces the ranges the settings controls offer.
func (u *Update) Validate() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.BatchSize, validation.NilOrNotEmpty, validation.Min(MinBatchSize), validation.Max(MaxBatchSize)),
		validation.Field(&u.ExcludePatterns, validation.By(func(v any) error {
			var patterns []string
			switch p := v.(type) {
			case *[]string:
				if p == nil {
					return nil
				}
				patterns = *p
			case []string:
				patterns = p
			}
			return validation.Validate(patterns, validation.Each(notBlank))
		})),
	)
}

// Empty reports whether the update changes nothing.
func (u *Update) Empty() bool {
	return u.NamespaceFormat == nil && u.ExcludePatterns == nil &&
		u.AutoProcessNewFiles == nil && u.BatchSize == nil && u.ShowProgressBar == nil
}

// Apply validates u and runs the matching setters, each of which persists.
// It stops at the first persistence error.
func (s *Store) Apply(u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.NamespaceFormat != nil {
		if err := s.SetNamespaceFormat(*u.NamespaceFormat); err != nil {
			return err
		}
	}
	if u.ExcludePatterns != nil {
		if err := s.SetExcludePatterns(*u.ExcludePatterns); err != nil {
			return err
		}
	}
	if u.AutoProcessNewFiles != nil {
		if err := s.SetAutoProcessNewFiles(*u.AutoProcessNewFiles); err != nil {
			return err
		}
	}
	if u.BatchSize != nil {
		if err := s.SetBatchSize(*u.BatchSize); err != nil {
			return err
		}
	}
	if u.ShowProgressBar != nil {
		if err := s.SetShowProgressBar(*u.ShowProgressBar); err != nil {
			return err
		}
	}
	return nil
}
