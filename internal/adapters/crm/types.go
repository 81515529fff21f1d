package crm

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/kpiboard/internal/domain/kpi"
	"github.com/okian/kpiboard/internal/domain/model"
)

// Number is a JSON number that accepts the shapes the CRM is known to send:
// plain numbers, numeric strings and null. Anything else decodes as 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler and never fails.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = 0
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil
		}
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = Number(v)
	return nil
}

// Float64 returns the value as float64.
func (n Number) Float64() float64 { return float64(n) }

// ID is an identifier the CRM may send either as a string or as a number.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*id = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*id = ID(v)
	default:
		*id = ID(s)
	}
	return nil
}

// User is one entry of GET /users?role=sales.
type User struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`

	MonthsActive   Number `json:"months_active"`
	TotalPipelines Number `json:"total_pipelines"`
	TotalCustomers Number `json:"total_customers"`
	YearlyTarget   Number `json:"yearly_target"`
	V1             Number `json:"v1"`
	V2             Number `json:"v2"`
	V3             Number `json:"v3"`
	Close          Number `json:"close"`
	Repeat         Number `json:"repeat"`
	SalesAchieved  Number `json:"sales_achieved"`
	SocPosts       Number `json:"soc_posts"`
	ActCount       Number `json:"act_count"`
	HotProspects   Number `json:"hot_prospects"`
	ClosingCount   Number `json:"closing_count"`
}

// SalesPerson converts the wire record into the domain model. Counters are
// copied as reported; denominator defaults are applied by kpi.Metrics.Normalize.
func (u User) SalesPerson() model.SalesPerson {
	return model.SalesPerson{
		ID:   string(u.ID),
		Name: u.Name,
		Metrics: kpi.Metrics{
			MonthsActive:   u.MonthsActive.Float64(),
			TotalPipelines: u.TotalPipelines.Float64(),
			TotalCustomers: u.TotalCustomers.Float64(),
			YearlyTarget:   u.YearlyTarget.Float64(),
			V1:             u.V1.Float64(),
			V2:             u.V2.Float64(),
			V3:             u.V3.Float64(),
			Close:          u.Close.Float64(),
			Repeat:         u.Repeat.Float64(),
			SalesAchieved:  u.SalesAchieved.Float64(),
			SocPosts:       u.SocPosts.Float64(),
			ActCount:       u.ActCount.Float64(),
			HotProspects:   u.HotProspects.Float64(),
			ClosingCount:   u.ClosingCount.Float64(),
		},
	}
}

// Pipeline is one entry of GET /users/{id}/pipelines?status=active.
type Pipeline struct {
	ID          ID     `json:"id"`
	Stage       Number `json:"stage"`
	Status      string `json:"status"`
	Contact     string `json:"contact"`
	Institution string `json:"institution"`
	CreatedAt   string `json:"created_at"`
}

// maxStage is the last pipeline stage, After Sales.
const maxStage = 5

var createdAtLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly}

// Entry converts the wire record into the domain model. Stages are clamped
// to 0..maxStage; unparseable dates become the zero time.
func (p Pipeline) Entry() model.PipelineEntry {
	var stage int
	switch f := math.Round(p.Stage.Float64()); {
	case math.IsNaN(f) || f <= 0:
		stage = 0
	case f >= maxStage:
		stage = maxStage
	default:
		stage = int(f)
	}
	var created time.Time
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, p.CreatedAt); err == nil {
			created = t
			break
		}
	}
	return model.PipelineEntry{
		ID:          string(p.ID),
		Stage:       stage,
		Status:      p.Status,
		Contact:     p.Contact,
		Institution: p.Institution,
		CreatedAt:   created,
	}
}

// decodeList accepts either a bare JSON array or an object wrapping it in "data".
// Elements are decoded one by one; an element that does not fit T is handed to
// skip with its index and left out of the result.
func decodeList[T any](body []byte, skip func(index int, err error)) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var raw []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, err
		}
	} else {
		var envelope struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		raw = envelope.Data
	}
	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			if skip != nil {
				skip(i, err)
			}
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
