package provider

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nghyane/llm-wire/internal/wire/body"
	"github.com/nghyane/llm-wire/internal/wire/placeholder"
)

// Issue is one validation finding. Errors reject a definition; warnings are
// reported and tolerated.
type Issue struct {
	Severity body.Severity `json:"severity"`
	Where    string        `json:"where"`
	Message  string        `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Where, i.Message)
}

type Issues []Issue

func (is Issues) HasErrors() bool {
	for _, i := range is {
		if i.Severity == body.SeverityError {
			return true
		}
	}
	return false
}

func (is Issues) Warnings() Issues {
	var out Issues
	for _, i := range is {
		if i.Severity == body.SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// Err joins the error-level issues, or returns nil when there are none.
func (is Issues) Err() error {
	var errs []error
	for _, i := range is {
		if i.Severity == body.SeverityError {
			errs = append(errs, errors.New(i.Where+": "+i.Message))
		}
	}
	return errors.Join(errs...)
}

// ValidationError rejects a definition at load time.
type ValidationError struct {
	Name   string
	Source string
	Issues Issues
}

func (e *ValidationError) Error() string {
	where := e.Name
	if e.Source != "" {
		where = e.Source
	}
	return fmt.Sprintf("provider %s: invalid definition: %v", where, e.Issues.Err())
}

// Validate checks the definition for structural completeness.
func (d *Definition) Validate() Issues {
	var is Issues
	add := func(sev body.Severity, where, msg string) {
		is = append(is, Issue{Severity: sev, Where: where, Message: msg})
	}

	if strings.TrimSpace(d.Name) == "" {
		add(body.SeverityError, "name", "name is required")
	}
	if strings.TrimSpace(d.URL) == "" {
		add(body.SeverityError, "url", "url is required")
	} else {
		sample := placeholder.Substitute(d.URL, map[placeholder.Placeholder]string{
			placeholder.Model: "sample-model",
			placeholder.Key:   "sample-key",
		})
		if u, err := url.Parse(sample); err != nil || u.Scheme == "" || u.Host == "" {
			add(body.SeverityError, "url", fmt.Sprintf("%q is not an absolute URL", d.URL))
		}
	}

	if err := body.CheckTemplate(d.BodyTemplate); err != nil {
		add(body.SeverityError, "body_template", err.Error())
	}
	if d.MessageFields.HasAnyField() {
		for _, p := range d.MessageFields.Check() {
			add(p.Severity, "message_fields."+string(p.Field), p.Message)
		}
	} else {
		if d.MessageFields.HasToolFields() {
			add(body.SeverityWarning, "message_fields", "tool fields are ignored without a system, user or assistant field")
		}
		if !placeholder.Contains(d.BodyTemplate, placeholder.Prompt) {
			add(body.SeverityWarning, "body_template", "no {prompt} and no message fields; user input will not be sent")
		}
	}

	if err := d.Stream.Validate(); err != nil {
		for _, e := range unwrapJoined(err) {
			add(body.SeverityError, "stream", e.Error())
		}
	}
	for _, w := range d.Stream.Warnings() {
		add(body.SeverityWarning, "stream", w)
	}
	return is
}

func unwrapJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
