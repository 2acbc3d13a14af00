package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tgdash/internal/validate"
	"tgdash/pkg/model"
)

// Settings are the scalar keys of the configuration.
type Settings struct {
	Server   string `json:"server"`
	Test     string `json:"test"`
	Theme    string `json:"theme"`
	Language string `json:"language"`
}

func DefaultSettings() Settings {
	return Settings{Test: "1", Theme: "light", Language: "en-US"}
}

// LoadSettings fills keys that were never written with defaults.
func LoadSettings(ctx context.Context, st Store) (Settings, error) {
	s := DefaultSettings()
	fields := map[string]*string{
		KeyServer:   &s.Server,
		KeyTest:     &s.Test,
		KeyTheme:    &s.Theme,
		KeyLanguage: &s.Language,
	}
	for key, dst := range fields {
		raw, err := st.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return s, err
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return s, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	return s, nil
}

func SaveSettings(ctx context.Context, st Store, s Settings) error {
	values := make(map[string][]byte, 4)
	for key, v := range map[string]string{
		KeyServer:   s.Server,
		KeyTest:     s.Test,
		KeyTheme:    s.Theme,
		KeyLanguage: s.Language,
	} {
		b, _ := json.Marshal(v)
		values[key] = b
	}
	return st.PutAll(ctx, values)
}

// LoadTrafficGen returns the saved test definitions, empty if none were saved.
func LoadTrafficGen(ctx context.Context, st Store) (model.TestList, error) {
	raw, err := st.Get(ctx, KeyTrafficGen)
	if errors.Is(err, ErrNotFound) {
		return model.TestList{}, nil
	}
	if err != nil {
		return nil, err
	}
	var tests model.TestList
	if err := json.Unmarshal(raw, &tests); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyTrafficGen, err)
	}
	return tests, nil
}

// SaveTrafficGen validates every definition before writing.
func SaveTrafficGen(ctx context.Context, st Store, tests model.TestList) error {
	var errs []error
	for _, n := range tests.Numbers() {
		def := tests[n]
		if err := validate.TrafficGen(&def); err != nil {
			errs = append(errs, fmt.Errorf("test %s: %w", n, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	b, err := json.Marshal(tests)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyTrafficGen, err)
	}
	return st.Put(ctx, KeyTrafficGen, b)
}

// Import replaces the saved definitions with an exported file and selects its
// first test. A file that fails validation leaves the store untouched.
func Import(ctx context.Context, st Store, raw []byte) (model.TestList, error) {
	tests, err := validate.ImportFile(raw)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(tests)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", KeyTrafficGen, err)
	}
	first, _ := json.Marshal(tests.Numbers()[0])
	if err := st.PutAll(ctx, map[string][]byte{KeyTrafficGen: b, KeyTest: first}); err != nil {
		return nil, err
	}
	return tests, nil
}
