package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/charlesng35/catalogadmin/internal/models"
	"github.com/charlesng35/catalogadmin/internal/services"
	appErrors "github.com/charlesng35/catalogadmin/pkg/errors"
)

// payload is a decoded create/update body. JSON documents, urlencoded forms and
// multipart forms expose the same accessors. Conversion problems are collected
// in errs and reported together as a validation failure.
type payload struct {
	json   map[string]json.RawMessage
	form   url.Values
	files  map[string][]*multipart.FileHeader
	opened []io.Closer
	errs   appErrors.FieldErrors
}

// field is a single submitted value. In forms the strings "null" and "" are null.
type field struct {
	key  string
	null bool
	text string
	raw  json.RawMessage
}

func readPayload(c *gin.Context) (*payload, error) {
	p := &payload{errs: appErrors.FieldErrors{}}
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		form, err := c.MultipartForm()
		if err != nil {
			return nil, appErrors.NewBadRequest("invalid multipart payload")
		}
		p.form = url.Values(form.Value)
		p.files = form.File
	case gin.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err != nil {
			return nil, appErrors.NewBadRequest("invalid form payload")
		}
		p.form = c.Request.PostForm
	default:
		p.json = map[string]json.RawMessage{}
		if c.Request.Body == nil {
			break
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, appErrors.NewBadRequest("unable to read request body")
		}
		if len(bytes.TrimSpace(body)) == 0 {
			break
		}
		if err := json.Unmarshal(body, &p.json); err != nil {
			return nil, appErrors.NewBadRequest("invalid JSON payload")
		}
	}
	return p, nil
}

// close releases uploaded files opened while decoding.
func (p *payload) close() {
	for _, closer := range p.opened {
		_ = closer.Close()
	}
	p.opened = nil
}

// err returns the collected conversion failures.
func (p *payload) err() error {
	return p.errs.Err()
}

func (p *payload) get(keys ...string) (field, bool) {
	for _, key := range keys {
		if p.json != nil {
			raw, ok := p.json[key]
			if !ok {
				continue
			}
			f := field{key: key, raw: raw}
			trimmed := bytes.TrimSpace(raw)
			switch {
			case bytes.Equal(trimmed, []byte("null")):
				f.null = true
			case len(trimmed) > 0 && trimmed[0] == '"':
				if err := json.Unmarshal(trimmed, &f.text); err != nil {
					p.errs.Add(key, fmt.Sprintf("The %s field is malformed.", key))
				}
			default:
				f.text = string(trimmed)
			}
			return f, true
		}
		if values, ok := p.form[key]; ok && len(values) > 0 {
			text := values[0]
			return field{key: key, text: text, null: text == "" || text == "null"}, true
		}
	}
	return field{}, false
}

func (f field) isComposite() bool {
	trimmed := bytes.TrimSpace(f.raw)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// str returns the value of the first present key. Null yields an empty string.
func (p *payload) str(keys ...string) *string {
	f, ok := p.get(keys...)
	if !ok {
		return nil
	}
	if f.isComposite() {
		p.errs.Add(f.key, fmt.Sprintf("The %s field must be a string.", f.key))
		return nil
	}
	value := f.text
	if f.null {
		value = ""
	}
	return &value
}

func (p *payload) uint(keys ...string) *uint {
	f, ok := p.get(keys...)
	if !ok || f.null {
		return nil
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(f.text), 10, 64)
	if err != nil {
		p.errs.Add(f.key, fmt.Sprintf("The %s field must be a positive integer.", f.key))
		return nil
	}
	value := uint(parsed)
	return &value
}

func (p *payload) int(keys ...string) *int {
	f, ok := p.get(keys...)
	if !ok || f.null {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(f.text))
	if err != nil {
		p.errs.Add(f.key, fmt.Sprintf("The %s field must be an integer.", f.key))
		return nil
	}
	return &parsed
}

func (p *payload) bool(keys ...string) *bool {
	f, ok := p.get(keys...)
	if !ok || f.null {
		return nil
	}
	text := strings.ToLower(strings.TrimSpace(f.text))
	if text == "on" || text == "yes" {
		text = "true"
	}
	if text == "off" || text == "no" {
		text = "false"
	}
	parsed, err := strconv.ParseBool(text)
	if err != nil {
		p.errs.Add(f.key, fmt.Sprintf("The %s field must be true or false.", f.key))
		return nil
	}
	return &parsed
}

func (p *payload) decimal(keys ...string) *decimal.Decimal {
	f, ok := p.get(keys...)
	if !ok || f.null {
		return nil
	}
	parsed, err := decimal.NewFromString(strings.TrimSpace(f.text))
	if err != nil {
		p.errs.Add(f.key, fmt.Sprintf("The %s field must be a number.", f.key))
		return nil
	}
	return &parsed
}

// optionalID distinguishes an omitted reference from an explicit null.
func (p *payload) optionalID(keys ...string) services.OptionalID {
	f, ok := p.get(keys...)
	if !ok {
		return services.OptionalID{}
	}
	if f.null || strings.TrimSpace(f.text) == "0" {
		return services.OptionalID{Set: true}
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(f.text), 10, 64)
	if err != nil || parsed == 0 {
		p.errs.Add(f.key, fmt.Sprintf("The %s field must be a positive integer.", f.key))
		return services.OptionalID{}
	}
	id := uint(parsed)
	return services.OptionalID{Set: true, ID: &id}
}

// uintList reads an id list sent as a JSON array, repeated form keys (key or
// key[]) or a comma separated string. Null yields an empty list.
func (p *payload) uintList(key string) *[]uint {
	var texts []string
	switch {
	case p.json != nil:
		f, ok := p.get(key)
		if !ok {
			return nil
		}
		if f.null {
			return &[]uint{}
		}
		var items []any
		if err := json.Unmarshal(f.raw, &items); err != nil {
			texts = strings.Split(f.text, ",")
			break
		}
		for _, item := range items {
			texts = append(texts, fmt.Sprint(item))
		}
	default:
		values, ok := p.form[key+"[]"]
		if !ok {
			values, ok = p.form[key]
		}
		if !ok {
			return nil
		}
		for _, value := range values {
			if value == "null" {
				continue
			}
			texts = append(texts, strings.Split(value, ",")...)
		}
	}

	ids := make([]uint, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		parsed, err := strconv.ParseUint(text, 10, 64)
		if err != nil || parsed == 0 {
			p.errs.Add(key, fmt.Sprintf("The %s field must contain positive integers.", key))
			return nil
		}
		ids = append(ids, uint(parsed))
	}
	return &ids
}

// asset maps a file field onto the Keep | Clear | Replace variant: an uploaded
// part replaces, null or an empty string clears, any other value or absence
// keeps. JSON and form bodies agree on every case.
func (p *payload) asset(key string) services.AssetChange {
	if upload, ok := p.upload(key); ok {
		return services.Replace(upload)
	}
	if f, ok := p.get(key); ok && !f.isComposite() && (f.null || f.text == "") {
		return services.Clear()
	}
	return services.Keep()
}

func (p *payload) upload(key string) (services.Upload, bool) {
	headers := p.files[key]
	if len(headers) == 0 || headers[0] == nil {
		return services.Upload{}, false
	}
	header := headers[0]
	file, err := header.Open()
	if err != nil {
		p.errs.Add(key, fmt.Sprintf("The %s failed to upload.", key))
		return services.Upload{}, false
	}
	p.opened = append(p.opened, file)
	return services.Upload{Filename: header.Filename, Content: file}, true
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = flexString(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*s = flexString(number.String())
	return nil
}

type gridItemPayload struct {
	ID    flexString          `json:"id"`
	Type  models.GridItemType `json:"type"`
	Props map[string]any      `json:"props"`
	File  json.RawMessage     `json:"file"`
}

type leafValuePayload struct {
	ID    *flexString     `json:"id"`
	Name  string          `json:"name"`
	Value string          `json:"value"`
	Img   json.RawMessage `json:"img"`
}

// list decodes a JSON array submitted natively or as a form string.
func (p *payload) list(key string, dest any) bool {
	f, ok := p.get(key)
	if !ok {
		return false
	}
	data := []byte(f.text)
	if f.null {
		data = []byte("[]")
	} else if f.raw != nil && f.isComposite() {
		data = f.raw
	}
	if err := json.Unmarshal(data, dest); err != nil {
		p.errs.Add(key, fmt.Sprintf("The %s field must be a JSON array.", key))
		return false
	}
	return true
}

// grid decodes grid items; files arrive as grid[<i>][file] parts.
func (p *payload) grid(key string) *[]services.GridItemInput {
	var items []gridItemPayload
	if !p.list(key, &items) {
		return nil
	}
	inputs := make([]services.GridItemInput, 0, len(items))
	for i, item := range items {
		input := services.GridItemInput{
			ID:    string(item.ID),
			Type:  item.Type,
			Props: item.Props,
			File:  services.Keep(),
		}
		if upload, ok := p.upload(fmt.Sprintf("%s[%d][file]", key, i)); ok {
			input.File = services.Replace(upload)
		} else if clearsAsset(item.File) {
			input.File = services.Clear()
		}
		inputs = append(inputs, input)
	}
	return &inputs
}

// leafValues decodes leaf values; images arrive as values[<i>][img] parts.
func (p *payload) leafValues(key string) *[]services.LeafValueInput {
	var items []leafValuePayload
	if !p.list(key, &items) {
		return nil
	}
	inputs := make([]services.LeafValueInput, 0, len(items))
	for i, item := range items {
		input := services.LeafValueInput{
			Name:  strings.TrimSpace(item.Name),
			Value: strings.TrimSpace(item.Value),
			Img:   services.Keep(),
		}
		if item.ID != nil && *item.ID != "" {
			parsed, err := strconv.ParseUint(string(*item.ID), 10, 64)
			if err != nil {
				p.errs.Add(fmt.Sprintf("%s.%d.id", key, i), "The id must be a positive integer.")
			} else {
				id := uint(parsed)
				input.ID = &id
			}
		}
		if upload, ok := p.upload(fmt.Sprintf("%s[%d][img]", key, i)); ok {
			input.Img = services.Replace(upload)
		} else if clearsAsset(item.Img) {
			input.Img = services.Clear()
		}
		inputs = append(inputs, input)
	}
	return &inputs
}

// clearsAsset reports whether a nested file value is null or "".
func clearsAsset(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}
