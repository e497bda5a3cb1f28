// Package prompt edits option values interactively. Each editable field of
// a container becomes a terminal prompt; the answers come back as a value
// map ready to be persisted to an option store.
package prompt

import (
	"context"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-optionbuilder/pkg/field"
	"github.com/goliatone/go-optionbuilder/pkg/fieldtype"
	"github.com/goliatone/go-optionbuilder/pkg/fieldtype/builtin"
	"github.com/goliatone/go-optionbuilder/pkg/value"
)

// Editor walks container fields and asks for their values.
type Editor struct {
	driver Driver
	strip  *bluemonday.Policy
}

// NewEditor creates an editor using driver for all prompts.
func NewEditor(driver Driver) *Editor {
	return &Editor{driver: driver, strip: bluemonday.StrictPolicy()}
}

// Edit prompts for every editable field of container, pre-filled from
// current. Only answered fields appear in the result; display-only kinds
// (heading, notice, hidden) and repeaters are skipped.
func (e *Editor) Edit(ctx context.Context, container field.Container, current map[string]any) (map[string]any, error) {
	return e.editFields(ctx, container.Fields, current)
}

func (e *Editor) editFields(ctx context.Context, specs []field.Spec, current map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		if strings.TrimSpace(spec.ID) == "" {
			continue
		}
		answer, ok, err := e.editField(ctx, spec, current[spec.ID])
		if err != nil {
			return nil, fmt.Errorf("prompt: field %q: %w", spec.ID, err)
		}
		if ok {
			out[spec.ID] = answer
		}
	}
	return out, nil
}

func (e *Editor) editField(ctx context.Context, spec field.Spec, current any) (any, bool, error) {
	if field.IsAbsent(current) {
		current = spec.Default
	}
	message := spec.Title
	if message == "" {
		message = spec.ID
	}
	help := html.UnescapeString(e.strip.Sanitize(spec.Subtitle))

	switch strings.ToLower(fieldtype.Classify(spec.Type)) {
	case builtin.KindText, builtin.KindEmail, builtin.KindURL, builtin.KindColor:
		answer, err := e.driver.Input(ctx, InputConfig{Message: message, Help: help, Default: value.String(current)})
		return answer, err == nil, err

	case builtin.KindNumber:
		answer, err := e.driver.Input(ctx, InputConfig{
			Message:   message,
			Help:      help,
			Default:   value.String(current),
			Validator: validateNumber,
		})
		if err != nil || strings.TrimSpace(answer) == "" {
			return nil, false, err
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
		if err != nil {
			return nil, false, ErrInvalidNumber
		}
		return n, true, nil

	case builtin.KindPassword:
		answer, err := e.driver.Password(ctx, InputConfig{Message: message, Help: help})
		if err != nil || answer == "" {
			return nil, false, err
		}
		return answer, true, nil

	case builtin.KindTextarea:
		answer, err := e.driver.TextArea(ctx, TextAreaConfig{Message: message, Help: help, Default: value.String(current)})
		return answer, err == nil, err

	case builtin.KindSelect, builtin.KindRadio:
		if len(spec.Options) == 0 {
			return nil, false, nil
		}
		if _, multiple := spec.Attributes["multiple"]; multiple {
			return e.multiSelect(ctx, spec, message, help, current)
		}
		labels, values := optionLists(spec.Options)
		idx, err := e.driver.Select(ctx, SelectConfig{
			Message:      message,
			Help:         help,
			Options:      labels,
			DefaultIndex: slices.Index(values, value.String(current)),
		})
		if err != nil || idx < 0 || idx >= len(values) {
			return nil, false, err
		}
		return values[idx], true, nil

	case builtin.KindCheckbox:
		if len(spec.Options) > 0 {
			return e.multiSelect(ctx, spec, message, help, current)
		}
		answer, err := e.driver.Confirm(ctx, ConfirmConfig{Message: message, Help: help, Default: truthy(current)})
		return answer, err == nil, err

	case builtin.KindSwitcher:
		answer, err := e.driver.Confirm(ctx, ConfirmConfig{Message: message, Help: help, Default: truthy(current)})
		return answer, err == nil, err

	case builtin.KindGroup:
		nested, _ := current.(map[string]any)
		answers, err := e.editFields(ctx, spec.Fields, nested)
		if err != nil {
			return nil, false, err
		}
		return answers, len(answers) > 0, nil

	default:
		return nil, false, nil
	}
}

func (e *Editor) multiSelect(ctx context.Context, spec field.Spec, message, help string, current any) (any, bool, error) {
	labels, values := optionLists(spec.Options)
	var defaults []int
	for _, selected := range value.Strings(current) {
		if idx := slices.Index(values, selected); idx >= 0 {
			defaults = append(defaults, idx)
		}
	}
	indices, err := e.driver.MultiSelect(ctx, SelectConfig{Message: message, Help: help, Options: labels, Defaults: defaults})
	if err != nil {
		return nil, false, err
	}
	chosen := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(values) {
			chosen = append(chosen, values[idx])
		}
	}
	return chosen, true, nil
}

func optionLists(options []field.Option) (labels, values []string) {
	for _, option := range options {
		label := option.Label
		if label == "" {
			label = option.Value
		}
		labels = append(labels, label)
		values = append(values, option.Value)
	}
	return labels, values
}

func validateNumber(answer string) error {
	if strings.TrimSpace(answer) == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(answer), 64); err != nil {
		return ErrInvalidNumber
	}
	return nil
}

func truthy(v any) bool {
	switch typed := v.(type) {
	case bool:
		return typed
	case nil:
		return false
	}
	switch strings.ToLower(value.String(v)) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}
