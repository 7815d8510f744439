package notion

import (
	"encoding/json"
	"fmt"
)

// PropertyType is the "type" tag Notion attaches to every property value.
type PropertyType string

const (
	TypeTitle          PropertyType = "title"
	TypeRichText       PropertyType = "rich_text"
	TypeNumber         PropertyType = "number"
	TypeDate           PropertyType = "date"
	TypeSelect         PropertyType = "select"
	TypeMultiSelect    PropertyType = "multi_select"
	TypeFormula        PropertyType = "formula"
	TypeRollup         PropertyType = "rollup"
	TypeRelation       PropertyType = "relation"
	TypePeople         PropertyType = "people"
	TypeFiles          PropertyType = "files"
	TypeCheckbox       PropertyType = "checkbox"
	TypeURL            PropertyType = "url"
	TypeEmail          PropertyType = "email"
	TypePhoneNumber    PropertyType = "phone_number"
	TypeCreatedTime    PropertyType = "created_time"
	TypeCreatedBy      PropertyType = "created_by"
	TypeLastEditedTime PropertyType = "last_edited_time"
	TypeLastEditedBy   PropertyType = "last_edited_by"
)

// KnownPropertyTypes lists every type with a dedicated Property variant.
var KnownPropertyTypes = []PropertyType{
	TypeTitle, TypeRichText, TypeNumber, TypeDate, TypeSelect, TypeMultiSelect,
	TypeFormula, TypeRollup, TypeRelation, TypePeople, TypeFiles, TypeCheckbox,
	TypeURL, TypeEmail, TypePhoneNumber, TypeCreatedTime, TypeCreatedBy,
	TypeLastEditedTime, TypeLastEditedBy,
}

// Property is a single typed property value. The set of implementations is
// closed; types Notion adds later decode into UnknownProperty.
type Property interface {
	Type() PropertyType
	isProperty()
}

// Properties maps property names to values, as found on a page.
type Properties map[string]Property

func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Properties, len(raw))
	for name, body := range raw {
		prop, err := DecodeProperty(body)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = prop
	}
	*p = out
	return nil
}

type RichText struct {
	Type        string          `json:"type,omitempty"`
	Text        *TextContent    `json:"text,omitempty"`
	Mention     json.RawMessage `json:"mention,omitempty"`
	Equation    json.RawMessage `json:"equation,omitempty"`
	Annotations *Annotations    `json:"annotations,omitempty"`
	PlainText   string          `json:"plain_text,omitempty"`
	Href        *string         `json:"href,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

type Link struct {
	URL string `json:"url"`
}

type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

// Text builds a plain text span.
func Text(content string) RichText {
	return RichText{Type: "text", Text: &TextContent{Content: content}, PlainText: content}
}

// DateValue is a Notion date: Start alone is a date or instant, Start+End a
// range. Strings are ISO 8601 as sent by the API.
type DateValue struct {
	Start    string  `json:"start"`
	End      *string `json:"end"`
	TimeZone *string `json:"time_zone,omitempty"`
}

type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

type User struct {
	Object string `json:"object"`
	ID     string `json:"id"`
}

type PageReference struct {
	ID string `json:"id"`
}

type File struct {
	Name     string        `json:"name,omitempty"`
	Type     string        `json:"type"`
	External *ExternalFile `json:"external,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
}

type ExternalFile struct {
	URL string `json:"url"`
}

type HostedFile struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

type TitleProperty struct{ Title []RichText }
type RichTextProperty struct{ RichText []RichText }
type NumberProperty struct{ Number *float64 }
type DateProperty struct{ Date *DateValue }
type SelectProperty struct{ Select *SelectOption }
type MultiSelectProperty struct{ MultiSelect []SelectOption }

// FormulaProperty and RollupProperty keep the computed payload verbatim.
type FormulaProperty struct{ Formula json.RawMessage }
type RollupProperty struct{ Rollup json.RawMessage }

type RelationProperty struct{ Relation []PageReference }
type PeopleProperty struct{ People []User }
type FilesProperty struct{ Files []File }
type CheckboxProperty struct{ Checkbox bool }
type URLProperty struct{ URL *string }
type EmailProperty struct{ Email *string }
type PhoneNumberProperty struct{ PhoneNumber *string }
type CreatedTimeProperty struct{ CreatedTime string }
type CreatedByProperty struct{ CreatedBy User }
type LastEditedTimeProperty struct{ LastEditedTime string }
type LastEditedByProperty struct{ LastEditedBy User }

// UnknownProperty holds a value whose type this client does not model.
type UnknownProperty struct {
	Kind PropertyType
	Raw  json.RawMessage
}

func (TitleProperty) Type() PropertyType          { return TypeTitle }
func (RichTextProperty) Type() PropertyType       { return TypeRichText }
func (NumberProperty) Type() PropertyType         { return TypeNumber }
func (DateProperty) Type() PropertyType           { return TypeDate }
func (SelectProperty) Type() PropertyType         { return TypeSelect }
func (MultiSelectProperty) Type() PropertyType    { return TypeMultiSelect }
func (FormulaProperty) Type() PropertyType        { return TypeFormula }
func (RollupProperty) Type() PropertyType         { return TypeRollup }
func (RelationProperty) Type() PropertyType       { return TypeRelation }
func (PeopleProperty) Type() PropertyType         { return TypePeople }
func (FilesProperty) Type() PropertyType          { return TypeFiles }
func (CheckboxProperty) Type() PropertyType       { return TypeCheckbox }
func (URLProperty) Type() PropertyType            { return TypeURL }
func (EmailProperty) Type() PropertyType          { return TypeEmail }
func (PhoneNumberProperty) Type() PropertyType    { return TypePhoneNumber }
func (CreatedTimeProperty) Type() PropertyType    { return TypeCreatedTime }
func (CreatedByProperty) Type() PropertyType      { return TypeCreatedBy }
func (LastEditedTimeProperty) Type() PropertyType { return TypeLastEditedTime }
func (LastEditedByProperty) Type() PropertyType   { return TypeLastEditedBy }
func (p UnknownProperty) Type() PropertyType      { return p.Kind }

func (TitleProperty) isProperty()          {}
func (RichTextProperty) isProperty()       {}
func (NumberProperty) isProperty()         {}
func (DateProperty) isProperty()           {}
func (SelectProperty) isProperty()         {}
func (MultiSelectProperty) isProperty()    {}
func (FormulaProperty) isProperty()        {}
func (RollupProperty) isProperty()         {}
func (RelationProperty) isProperty()       {}
func (PeopleProperty) isProperty()         {}
func (FilesProperty) isProperty()          {}
func (CheckboxProperty) isProperty()       {}
func (URLProperty) isProperty()            {}
func (EmailProperty) isProperty()          {}
func (PhoneNumberProperty) isProperty()    {}
func (CreatedTimeProperty) isProperty()    {}
func (CreatedByProperty) isProperty()      {}
func (LastEditedTimeProperty) isProperty() {}
func (LastEditedByProperty) isProperty()   {}
func (UnknownProperty) isProperty()        {}

// Encoding: every variant marshals as {"type": t, t: value}, which is the
// shape Notion accepts in create and update requests.

func tagged(t PropertyType, v any) ([]byte, error) {
	return json.Marshal(map[string]any{"type": t, string(t): v})
}

func (p TitleProperty) MarshalJSON() ([]byte, error) {
	return tagged(TypeTitle, nonNil(p.Title))
}

func (p RichTextProperty) MarshalJSON() ([]byte, error) {
	return tagged(TypeRichText, nonNil(p.RichText))
}

func (p NumberProperty) MarshalJSON() ([]byte, error)   { return tagged(TypeNumber, p.Number) }
func (p DateProperty) MarshalJSON() ([]byte, error)     { return tagged(TypeDate, p.Date) }
func (p SelectProperty) MarshalJSON() ([]byte, error)   { return tagged(TypeSelect, p.Select) }
func (p CheckboxProperty) MarshalJSON() ([]byte, error) { return tagged(TypeCheckbox, p.Checkbox) }
func (p URLProperty) MarshalJSON() ([]byte, error)      { return tagged(TypeURL, p.URL) }
func (p EmailProperty) MarshalJSON() ([]byte, error)    { return tagged(TypeEmail, p.Email) }

func (p MultiSelectProperty) MarshalJSON() ([]byte, error) {
	return tagged(TypeMultiSelect, nonNil(p.MultiSelect))
}

func (p FormulaProperty) MarshalJSON() ([]byte, error) { return tagged(TypeFormula, rawOrNull(p.Formula)) }
func (p RollupProperty) MarshalJSON() ([]byte, error)  { return tagged(TypeRollup, rawOrNull(p.Rollup)) }

func (p RelationProperty) MarshalJSON() ([]byte, error) {
	return tagged(TypeRelation, nonNil(p.Relation))
}

func (p PeopleProperty) MarshalJSON() ([]byte, error) { return tagged(TypePeople, nonNil(p.People)) }
func (p FilesProperty) MarshalJSON() ([]byte, error)  { return tagged(TypeFiles, nonNil(p.Files)) }

func (p PhoneNumberProperty) MarshalJSON() ([]byte, error) {
	return tagged(TypePhoneNumber, p.PhoneNumber)
}

func (p CreatedTimeProperty) MarshalJSON() ([]byte, error) {
	return tagged(TypeCreatedTime, p.CreatedTime)
}

func (p CreatedByProperty) MarshalJSON() ([]byte, error) { return tagged(TypeCreatedBy, p.CreatedBy) }

func (p LastEditedTimeProperty) MarshalJSON() ([]byte, error) {
	return tagged(TypeLastEditedTime, p.LastEditedTime)
}

func (p LastEditedByProperty) MarshalJSON() ([]byte, error) {
	return tagged(TypeLastEditedBy, p.LastEditedBy)
}

func (p UnknownProperty) MarshalJSON() ([]byte, error) { return tagged(p.Kind, rawOrNull(p.Raw)) }

// nonNil keeps empty lists encoding as [] rather than null; Notion rejects
// null for list-valued properties.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func rawOrNull(r json.RawMessage) json.RawMessage {
	if len(r) == 0 {
		return json.RawMessage("null")
	}
	return r
}

// DecodeProperty decodes one property value in the format the API returns
// on read.
func DecodeProperty(data []byte) (Property, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var kind PropertyType
	if err := json.Unmarshal(raw["type"], &kind); err != nil || kind == "" {
		return nil, fmt.Errorf("notion: property value without type tag")
	}
	body := raw[string(kind)]
	if len(body) == 0 {
		body = json.RawMessage("null")
	}

	var (
		prop Property
		err  error
	)
	switch kind {
	case TypeTitle:
		var p TitleProperty
		err = json.Unmarshal(body, &p.Title)
		prop = p
	case TypeRichText:
		var p RichTextProperty
		err = json.Unmarshal(body, &p.RichText)
		prop = p
	case TypeNumber:
		var p NumberProperty
		err = json.Unmarshal(body, &p.Number)
		prop = p
	case TypeDate:
		var p DateProperty
		err = json.Unmarshal(body, &p.Date)
		prop = p
	case TypeSelect:
		var p SelectProperty
		err = json.Unmarshal(body, &p.Select)
		prop = p
	case TypeMultiSelect:
		var p MultiSelectProperty
		err = json.Unmarshal(body, &p.MultiSelect)
		prop = p
	case TypeFormula:
		prop = FormulaProperty{Formula: append(json.RawMessage(nil), body...)}
	case TypeRollup:
		prop = RollupProperty{Rollup: append(json.RawMessage(nil), body...)}
	case TypeRelation:
		var p RelationProperty
		err = json.Unmarshal(body, &p.Relation)
		prop = p
	case TypePeople:
		var p PeopleProperty
		err = json.Unmarshal(body, &p.People)
		prop = p
	case TypeFiles:
		var p FilesProperty
		err = json.Unmarshal(body, &p.Files)
		prop = p
	case TypeCheckbox:
		var p CheckboxProperty
		err = json.Unmarshal(body, &p.Checkbox)
		prop = p
	case TypeURL:
		var p URLProperty
		err = json.Unmarshal(body, &p.URL)
		prop = p
	case TypeEmail:
		var p EmailProperty
		err = json.Unmarshal(body, &p.Email)
		prop = p
	case TypePhoneNumber:
		var p PhoneNumberProperty
		err = json.Unmarshal(body, &p.PhoneNumber)
		prop = p
	case TypeCreatedTime:
		var p CreatedTimeProperty
		err = json.Unmarshal(body, &p.CreatedTime)
		prop = p
	case TypeCreatedBy:
		var p CreatedByProperty
		err = json.Unmarshal(body, &p.CreatedBy)
		prop = p
	case TypeLastEditedTime:
		var p LastEditedTimeProperty
		err = json.Unmarshal(body, &p.LastEditedTime)
		prop = p
	case TypeLastEditedBy:
		var p LastEditedByProperty
		err = json.Unmarshal(body, &p.LastEditedBy)
		prop = p
	default:
		prop = UnknownProperty{Kind: kind, Raw: append(json.RawMessage(nil), body...)}
	}
	if err != nil {
		return nil, fmt.Errorf("notion: decode %s value: %w", kind, err)
	}
	return prop, nil
}
