package notion

import (
	"fmt"
	"strings"
)

// MissingFieldError reports a property absent from a record.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("could not find property %q", e.Field)
}

// TypeMismatchError reports a property present with an unexpected type.
type TypeMismatchError struct {
	Field    string
	Expected PropertyType
	Actual   PropertyType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("invalid type for property %q: expected %q but got %q", e.Field, e.Expected, e.Actual)
}

// UnsupportedTypeError reports a property whose type cannot be supplied
// when creating a page.
type UnsupportedTypeError struct {
	Field string
	Type  PropertyType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("property type %q not supported for extra property %q", e.Type, e.Field)
}

// HostedFileError reports a Notion-hosted file in a files property. Only
// external files can be copied.
type HostedFileError struct {
	Field string
	Name  string
}

func (e *HostedFileError) Error() string {
	return fmt.Sprintf("cannot use non-external file %q for file property %q", e.Name, e.Field)
}

// ReadField returns the property name from props as a T.
//
//	title, err := notion.ReadField[notion.TitleProperty](page.Properties, "Name")
func ReadField[T Property](props Properties, name string) (T, error) {
	var zero T
	prop, ok := props[name]
	if !ok || prop == nil {
		return zero, &MissingFieldError{Field: name}
	}
	typed, ok := prop.(T)
	if !ok {
		return zero, &TypeMismatchError{Field: name, Expected: zero.Type(), Actual: prop.Type()}
	}
	return typed, nil
}

// PlainText joins the plain text of every span with a single space.
func PlainText(spans []RichText) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = s.PlainText
		if parts[i] == "" && s.Text != nil {
			parts[i] = s.Text.Content
		}
	}
	return strings.Join(parts, " ")
}

// ToInput converts a property value as read from one page into a value that
// can be written when creating another page.
func ToInput(name string, prop Property) (Property, error) {
	switch p := prop.(type) {
	case NumberProperty:
		return NumberProperty{Number: p.Number}, nil
	case DateProperty:
		return DateProperty{Date: p.Date}, nil
	case RichTextProperty:
		return RichTextProperty{RichText: p.RichText}, nil
	case SelectProperty:
		if p.Select == nil {
			return SelectProperty{}, nil
		}
		if p.Select.Name == "" {
			return nil, fmt.Errorf("did not receive an option name for the select property %q", name)
		}
		return SelectProperty{Select: &SelectOption{Name: p.Select.Name}}, nil
	case MultiSelectProperty:
		opts := make([]SelectOption, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			if o.Name == "" {
				return nil, fmt.Errorf("did not receive an option name for the multi-select property %q", name)
			}
			opts = append(opts, SelectOption{Name: o.Name})
		}
		return MultiSelectProperty{MultiSelect: opts}, nil
	case FormulaProperty:
		return FormulaProperty{Formula: p.Formula}, nil
	case RollupProperty:
		return RollupProperty{Rollup: p.Rollup}, nil
	case RelationProperty:
		refs := make([]PageReference, len(p.Relation))
		for i, r := range p.Relation {
			refs[i] = PageReference{ID: r.ID}
		}
		return RelationProperty{Relation: refs}, nil
	case PeopleProperty:
		people := make([]User, len(p.People))
		for i, u := range p.People {
			people[i] = User{Object: "user", ID: u.ID}
		}
		return PeopleProperty{People: people}, nil
	case FilesProperty:
		files := make([]File, 0, len(p.Files))
		for _, f := range p.Files {
			if f.Type != "external" || f.External == nil {
				return nil, &HostedFileError{Field: name, Name: f.Name}
			}
			files = append(files, File{Name: f.Name, Type: "external", External: &ExternalFile{URL: f.External.URL}})
		}
		return FilesProperty{Files: files}, nil
	case CheckboxProperty:
		return CheckboxProperty{Checkbox: p.Checkbox}, nil
	case URLProperty:
		return URLProperty{URL: p.URL}, nil
	case EmailProperty:
		return EmailProperty{Email: p.Email}, nil
	case PhoneNumberProperty:
		return PhoneNumberProperty{PhoneNumber: p.PhoneNumber}, nil

	// Titles are written separately; the rest are computed by Notion and
	// cannot be supplied on create.
	case TitleProperty, CreatedTimeProperty, CreatedByProperty,
		LastEditedTimeProperty, LastEditedByProperty, UnknownProperty:
		return nil, &UnsupportedTypeError{Field: name, Type: prop.Type()}
	}

	if prop == nil {
		return nil, &MissingFieldError{Field: name}
	}
	return nil, fmt.Errorf("notion: no conversion for %T in property %q", prop, name)
}
