package notion

import (
	"encoding/json"
	"fmt"
)

// Page is a database row.
type Page struct {
	ID         string     `json:"id"`
	Archived   bool       `json:"archived"`
	Properties Properties `json:"properties"`
}

// Block is a piece of page content. Content holds the type-specific body
// (the value under the key named by Type) verbatim.
type Block struct {
	ID          string
	Type        string
	HasChildren bool
	Content     json.RawMessage
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var head struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Type == "" {
		return fmt.Errorf("notion: block %s without type", head.ID)
	}
	b.ID = head.ID
	b.Type = head.Type
	b.HasChildren = head.HasChildren
	b.Content = append(json.RawMessage(nil), raw[head.Type]...)
	return nil
}

// MarshalJSON encodes the block in the shape accepted as page children.
// The id is omitted since the block is written as new content.
func (b Block) MarshalJSON() ([]byte, error) {
	content := b.Content
	if len(content) == 0 {
		content = json.RawMessage("{}")
	}
	return json.Marshal(map[string]any{
		"object": "block",
		"type":   b.Type,
		b.Type:   content,
	})
}

// Copyable reports whether the block can be recreated through the API.
// Sub-pages, sub-databases and blocks Notion does not expose cannot.
func (b Block) Copyable() bool {
	switch b.Type {
	case "child_page", "child_database", "unsupported", "link_preview", "template", "synced_block":
		return false
	default:
		return true
	}
}

// List is one page of a paginated response.
type List[T any] struct {
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// Filter is a database query filter. Only the property filters this
// program needs are modelled.
type Filter struct {
	Property string          `json:"property"`
	RichText *TextCondition  `json:"rich_text,omitempty"`
	Checkbox *CheckboxFilter `json:"checkbox,omitempty"`
}

type TextCondition struct {
	StartsWith string `json:"starts_with,omitempty"`
	Equals     string `json:"equals,omitempty"`
}

type CheckboxFilter struct {
	Equals bool `json:"equals"`
}

// CreatePageRequest creates a row in DatabaseID.
type CreatePageRequest struct {
	DatabaseID string
	Properties Properties
	Children   []Block
}

func (r CreatePageRequest) MarshalJSON() ([]byte, error) {
	body := struct {
		Parent     map[string]string `json:"parent"`
		Properties Properties        `json:"properties"`
		Children   []Block           `json:"children,omitempty"`
	}{
		Parent:     map[string]string{"database_id": r.DatabaseID},
		Properties: r.Properties,
		Children:   r.Children,
	}
	return json.Marshal(body)
}
