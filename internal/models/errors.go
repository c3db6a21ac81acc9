package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ExtractKind int

const (
	NoMetadata ExtractKind = iota + 1
	UnreadableFile
	InvalidCoordinate
)

var extractKindNames = map[ExtractKind]string{
	NoMetadata:        "NoMetadata",
	UnreadableFile:    "UnreadableFile",
	InvalidCoordinate: "InvalidCoordinate",
}

func (k ExtractKind) String() string {
	if s, ok := extractKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ExtractKind(%d)", int(k))
}

func (k ExtractKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ExtractKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for kind, name := range extractKindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown extract kind %q", s)
}

// ExtractError is a per-file failure. It never aborts a batch.
type ExtractError struct {
	Kind ExtractKind
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

type Section string

const (
	SectionProfile     Section = "PROFILE"
	SectionSource      Section = "SOURCE"
	SectionFolders     Section = "FOLDERS"
	SectionPlacemark   Section = "PLACEMARK"
	SectionDescription Section = "DESCRIPTION"
	SectionPhoto       Section = "PHOTO"
	SectionPath        Section = "PATH"
)

type ValidationError struct {
	Section Section
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s settings: %s", strings.ToLower(string(e.Section)), e.Reason)
}

type ConfigCode string

const (
	UnknownNameMode       ConfigCode = "UnknownNameMode"
	UnknownFolderMode     ConfigCode = "UnknownFolderMode"
	InvalidDatePattern    ConfigCode = "InvalidDatePattern"
	DescriptionUnreadable ConfigCode = "DescriptionUnreadable"
)

// ConfigError is a programming or configuration corruption error. A run
// that hits one is aborted before anything is written.
type ConfigError struct {
	Code   ConfigCode
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return "ConfigError:" + string(e.Code)
	}
	return fmt.Sprintf("ConfigError:%s: %s", e.Code, e.Detail)
}

// Is matches any ConfigError with the same code.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	return ok && t.Code == e.Code
}

type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// InvalidPatternName is the placemark name used when a date pattern turns
// out to be unusable while naming.
const InvalidPatternName = "<invalid date pattern>"
