package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/germanamz/mystic/pkg/catalog"
	"github.com/germanamz/mystic/pkg/transport/httpadapter"
)

// formField is one parameter prompt. Booleans use a confirm, every other
// parameter is entered as text.
type formField struct {
	param   catalog.Param
	enum    []string
	boolean bool
	text    string
	checked bool
}

// newFormFields prepares one field per parameter of s, pre-filled with its
// default.
func newFormFields(s *jsonschema.Schema) []*formField {
	var fields []*formField
	for _, p := range catalog.Params(s) {
		prop := s.Properties[p.Name]
		f := &formField{param: p}

		for _, v := range prop.Enum {
			f.enum = append(f.enum, fmt.Sprint(v))
		}

		if strings.HasPrefix(p.Type, "boolean") {
			f.boolean = true
		}

		if p.Default != "" {
			var def any
			if err := json.Unmarshal([]byte(p.Default), &def); err == nil {
				switch v := def.(type) {
				case bool:
					f.checked = v
				case string:
					f.text = v
				default:
					f.text = p.Default
				}
			}
		}

		fields = append(fields, f)
	}

	return fields
}

// huhField builds the interactive prompt for f.
func (f *formField) huhField() huh.Field {
	title := f.param.Name
	if f.param.Required {
		title += " *"
	}

	switch {
	case f.boolean:
		return huh.NewConfirm().
			Title(title).
			Description(f.param.Description).
			Value(&f.checked)
	case len(f.enum) > 0:
		if f.text == "" {
			f.text = f.enum[0]
		}
		return huh.NewSelect[string]().
			Title(title).
			Description(f.param.Description).
			Options(huh.NewOptions(f.enum...)...).
			Value(&f.text)
	default:
		desc := f.param.Description
		if f.param.Type != "" {
			desc = strings.TrimSpace(f.param.Type + "  " + desc)
		}
		return huh.NewInput().
			Title(title).
			Description(desc).
			Value(&f.text).
			Validate(f.validate)
	}
}

func (f *formField) validate(s string) error {
	if s == "" {
		if f.param.Required {
			return fmt.Errorf("%s is required", f.param.Name)
		}
		return nil
	}

	switch {
	case strings.HasPrefix(f.param.Type, "integer"):
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return fmt.Errorf("%s must be an integer", f.param.Name)
		}
	case strings.HasPrefix(f.param.Type, "number"):
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return fmt.Errorf("%s must be a number", f.param.Name)
		}
	}

	return nil
}

// formArguments converts the collected answers into a JSON arguments object.
// Empty optional text fields are left out so their defaults apply. Array
// parameters take comma-separated values.
func formArguments(s *jsonschema.Schema, fields []*formField) (json.RawMessage, error) {
	q := url.Values{}
	for _, f := range fields {
		name := f.param.Name

		if f.boolean {
			q.Set(name, strconv.FormatBool(f.checked))
			continue
		}

		if f.text == "" {
			continue
		}

		if strings.HasPrefix(f.param.Type, "array") {
			for v := range strings.SplitSeq(f.text, ",") {
				q.Add(name, strings.TrimSpace(v))
			}
			continue
		}

		q.Set(name, f.text)
	}

	b, err := json.Marshal(httpadapter.QueryArguments(q, s))
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}

	return b, nil
}

// promptArguments asks for every parameter of s interactively.
func promptArguments(tool string, s *jsonschema.Schema) (json.RawMessage, error) {
	fields := newFormFields(s)
	if len(fields) == 0 {
		return json.RawMessage(`{}`), nil
	}

	items := make([]huh.Field, len(fields))
	for i, f := range fields {
		items[i] = f.huhField()
	}

	group := huh.NewGroup(items...).Title(tool)
	if err := huh.NewForm(group).Run(); err != nil {
		return nil, err
	}

	return formArguments(s, fields)
}
