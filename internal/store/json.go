package store

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Wire names of the known log fields.
const (
	fieldID          = "id"
	fieldMongoID     = "_id"
	fieldDate        = "date"
	fieldEndDate     = "endDate"
	fieldName        = "name"
	fieldCategory    = "category"
	fieldSubcategory = "subcategory"
	fieldLocation    = "location"
	fieldNote        = "note"
)

// MarshalJSON writes the known fields on top of any pass-through fields.
func (l Log) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Extra)+8)
	for k, v := range l.Extra {
		out[k] = v
	}
	if l.ID != "" {
		out[fieldID] = l.ID
	}
	out[fieldDate] = l.Date
	out[fieldName] = l.Name
	out[fieldCategory] = l.Category
	setIfNotEmpty(out, fieldEndDate, l.EndDate)
	setIfNotEmpty(out, fieldSubcategory, l.Subcategory)
	setIfNotEmpty(out, fieldLocation, l.Location)
	setIfNotEmpty(out, fieldNote, l.Note)
	return json.Marshal(out)
}

func setIfNotEmpty(m map[string]any, k, v string) {
	if v != "" {
		m[k] = v
	}
}

// UnmarshalJSON accepts both "id" and "_id"; unknown fields land in Extra.
func (l *Log) UnmarshalJSON(data []byte) error {
	res, err := parseObject(data)
	if err != nil {
		return fmt.Errorf("decode log: %w", err)
	}
	*l = DecodeLog(res)
	return nil
}

// DecodeLog reads a log out of an already parsed JSON object.
func DecodeLog(res gjson.Result) Log {
	var l Log
	res.ForEach(func(key, value gjson.Result) bool {
		switch k := key.String(); k {
		case fieldID:
			l.ID = wireString(value)
		case fieldMongoID:
			if l.ID == "" {
				l.ID = wireString(value)
			}
		case fieldDate:
			l.Date = wireString(value)
		case fieldEndDate:
			l.EndDate = wireString(value)
		case fieldName:
			l.Name = wireString(value)
		case fieldCategory:
			l.Category = wireString(value)
		case fieldSubcategory:
			l.Subcategory = wireString(value)
		case fieldLocation:
			l.Location = wireString(value)
		case fieldNote:
			l.Note = wireString(value)
		default:
			if l.Extra == nil {
				l.Extra = make(map[string]json.RawMessage)
			}
			l.Extra[k] = json.RawMessage(value.Raw)
		}
		return true
	})
	return l
}

// MarshalJSON writes only the fields the patch sets.
func (p LogPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, 7)
	set := func(k string, v *string) {
		if v != nil {
			out[k] = *v
		}
	}
	set(fieldDate, p.Date)
	set(fieldEndDate, p.EndDate)
	set(fieldName, p.Name)
	set(fieldCategory, p.Category)
	set(fieldSubcategory, p.Subcategory)
	set(fieldLocation, p.Location)
	set(fieldNote, p.Note)
	return json.Marshal(out)
}

// UnmarshalJSON treats every present key as a field to replace, so an
// explicit "" clears an optional field.
func (p *LogPatch) UnmarshalJSON(data []byte) error {
	res, err := parseObject(data)
	if err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}
	*p = LogPatch{}
	get := func(k string) *string {
		v := res.Get(k)
		if !v.Exists() {
			return nil
		}
		s := wireString(v)
		return &s
	}
	p.Date = get(fieldDate)
	p.EndDate = get(fieldEndDate)
	p.Name = get(fieldName)
	p.Category = get(fieldCategory)
	p.Subcategory = get(fieldSubcategory)
	p.Location = get(fieldLocation)
	p.Note = get(fieldNote)
	return nil
}

func parseObject(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid json")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return gjson.Result{}, fmt.Errorf("expected an object, got %s", res.Type)
	}
	return res, nil
}

// wireString flattens null to "" and a Mongo {"$oid": ...} id to its hex.
func wireString(v gjson.Result) string {
	switch {
	case v.Type == gjson.Null:
		return ""
	case v.IsObject():
		return v.Get("$oid").String()
	default:
		return v.String()
	}
}
