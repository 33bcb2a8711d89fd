package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gowebpki/jcs"
)

// NormalizedRow is a flat record with one string per export column.
type NormalizedRow map[string]string

// Column is one export column and how to read it from a record.
type Column struct {
	Name  string
	Value func(Row) string
}

// Layout is an ordered column set for one entity.
type Layout struct {
	Entity  string
	Columns []Column
}

func (l Layout) Header() []string {
	header := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		header[i] = c.Name
	}
	return header
}

// Flatten produces a value for every column; absent fields become "".
func (l Layout) Flatten(row Row) NormalizedRow {
	out := make(NormalizedRow, len(l.Columns))
	for _, c := range l.Columns {
		out[c.Name] = c.Value(row)
	}
	return out
}

// Records flattens rows into header-ordered string slices.
func (l Layout) Records(rows []Row) [][]string {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := make([]string, len(l.Columns))
		for i, c := range l.Columns {
			record[i] = c.Value(row)
		}
		records = append(records, record)
	}
	return records
}

var AssetLayout = Layout{
	Entity: "assets",
	Columns: []Column{
		field("id"),
		field("name"),
		field("asset_tag"),
		field("serial"),
		relation("model_id", "model", "id"),
		relation("model_name", "model", "name"),
		field("byod"),
		field("model_number"),
		field("eol"),
		date("asset_eol_date"),
		relation("status_id", "status_label", "id"),
		relation("status_name", "status_label", "name"),
		relation("status_meta", "status_label", "status_meta"),
		relation("category_id", "category", "id"),
		relation("category_name", "category", "name"),
		relation("manufacturer_id", "manufacturer", "id"),
		relation("manufacturer_name", "manufacturer", "name"),
		relation("supplier_id", "supplier", "id"),
		relation("supplier_name", "supplier", "name"),
		field("notes"),
		field("order_number"),
		relation("company_id", "company", "id"),
		relation("company_name", "company", "name"),
		relation("location_id", "location", "id"),
		relation("location_name", "location", "name"),
		relation("rtd_location_id", "rtd_location", "id"),
		relation("rtd_location_name", "rtd_location", "name"),
		field("image"),
		field("qr"),
		field("alt_barcode"),
		{Name: "assigned_to_id", Value: assignedTo("id")},
		{Name: "assigned_to_name", Value: assignedTo("name")},
		field("warranty_months"),
		date("warranty_expires"),
		date("created_at"),
		date("updated_at"),
		date("last_audit_date"),
		date("next_audit_date"),
		date("deleted_at"),
		date("purchase_date"),
		field("age"),
		date("last_checkout"),
		date("expected_checkin"),
		field("purchase_cost"),
		field("checkin_counter"),
		field("checkout_counter"),
		field("requests_counter"),
		field("user_can_checkout"),
		field("book_value"),
		canonical("custom_fields"),
		canonical("available_actions"),
	},
}

var UserLayout = Layout{
	Entity: "users",
	Columns: []Column{
		field("id"),
		field("name"),
		field("first_name"),
		field("last_name"),
		field("username"),
		field("email"),
		field("employee_num"),
		field("avatar"),
		field("jobtitle"),
		field("phone"),
		relation("location_id", "location", "id"),
		relation("location_name", "location", "name"),
		relation("department_id", "department", "id"),
		relation("department_name", "department", "name"),
		relation("company_id", "company", "id"),
		relation("company_name", "company", "name"),
		relation("manager_id", "manager", "id"),
		relation("manager_name", "manager", "name"),
		field("assets_count"),
		field("licenses_count"),
		field("accessories_count"),
		field("consumables_count"),
		date("created_at"),
	},
}

func field(key string) Column {
	return Column{Name: key, Value: func(r Row) string { return Text(r[key]) }}
}

// relation reads attr of a nested {id, name, ...} object.
func relation(name, rel, attr string) Column {
	return Column{Name: name, Value: func(r Row) string {
		obj, ok := r[rel].(map[string]any)
		if !ok {
			return ""
		}
		return Text(obj[attr])
	}}
}

// date reads a vendor timestamp, which is either a plain value or an object
// such as {"datetime": "...", "formatted": "..."}.
func date(key string) Column {
	return Column{Name: key, Value: func(r Row) string {
		obj, ok := r[key].(map[string]any)
		if !ok {
			return Text(r[key])
		}
		for _, attr := range []string{"formatted", "date", "datetime"} {
			if v, ok := obj[attr]; ok && v != nil {
				return Text(v)
			}
		}
		return Text(obj)
	}}
}

// assigned_to is an object for checked-out assets and a bare id otherwise.
func assignedTo(attr string) func(Row) string {
	return func(r Row) string {
		if obj, ok := r["assigned_to"].(map[string]any); ok {
			return Text(obj[attr])
		}
		if attr == "id" {
			return Text(r["assigned_to"])
		}
		return ""
	}
}

// canonical writes nested structures as canonical JSON text so the same
// value always exports identically.
func canonical(key string) Column {
	return Column{Name: key, Value: func(r Row) string {
		v := r[key]
		if empty(v) {
			return ""
		}
		return canonicalJSON(v)
	}}
}

// Text renders a scalar for a flat file. Nested values become canonical JSON.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case map[string]any, []any:
		return canonicalJSON(t)
	default:
		return fmt.Sprint(t)
	}
}

func canonicalJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	default:
		return false
	}
}
