package normalize_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
)

func ids(rows []normalize.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = normalize.Text(r["id"])
	}
	return out
}

var _ = Describe("DedupeByID", func() {
	var rows []normalize.Row

	BeforeEach(func() {
		rows = normalize.ExtractRows(payload(`[
		{"id":1,"name":"first"},
		{"id":2,"name":"two"},
		{"id":1,"name":"second"},
		{"name":"no id"},
		{"id":null,"name":"null id"},
		{"id":"2","name":"string two"},
		{"id":3}
	]`))
	})

	It("keeps the first row seen for each id", func() {
		out := normalize.DedupeByID(rows)
		Expect(ids(out)).To(Equal([]string{"1", "2", "2", "3"}))
		Expect(out[0]["name"]).To(Equal("first"))
	})

	It("treats numeric and string ids as different", func() {
		out := normalize.DedupeByID(rows)
		Expect(out[1]["name"]).To(Equal("two"))
		Expect(out[2]["name"]).To(Equal("string two"))
	})

	It("drops rows without a usable id", func() {
		for _, r := range normalize.DedupeByID(rows) {
			Expect(r).To(HaveKey("id"))
			Expect(r["id"]).NotTo(BeNil())
		}
	})

	It("is idempotent", func() {
		once := normalize.DedupeByID(rows)
		Expect(normalize.DedupeByID(once)).To(Equal(once))
	})

	It("handles empty input", func() {
		Expect(normalize.DedupeByID(nil)).To(BeEmpty())
	})
})

var _ = Describe("MergeRows", func() {
	It("replaces rows and rewrites numeric counters", func() {
		primary := payload(`{"total":1,"count":1,"total_records":"1","rows":[{"id":1}]}`)
		rows := normalize.ExtractRows(payload(`[{"id":1},{"id":2},{"id":3}]`))

		merged, ok := normalize.MergeRows(primary, rows).(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(merged["rows"]).To(HaveLen(3))
		Expect(merged["total"]).To(Equal(3))
		Expect(merged["count"]).To(Equal(3))
		Expect(merged["total_records"]).To(Equal("1"))
	})

	It("does not mutate the original payload", func() {
		primary := payload(`{"total":1,"rows":[{"id":1}]}`).(map[string]any)
		normalize.MergeRows(primary, nil)
		Expect(primary["total"]).To(Equal(json.Number("1")))
		Expect(primary["rows"]).To(HaveLen(1))
	})

	It("returns the rows for a non-object payload", func() {
		rows := normalize.ExtractRows(payload(`[{"id":1}]`))
		Expect(normalize.MergeRows(payload(`[]`), rows)).To(Equal(rows))
	})
})

var _ = Describe("LocationName", func() {
	DescribeTable("reads the display name",
		func(raw string, name string, found bool) {
			got, ok := normalize.LocationName(payload(raw))
			Expect(ok).To(Equal(found))
			Expect(got).To(Equal(name))
		},
		Entry("location object", `{"id":3,"name":"Pune Office"}`, "Pune Office", true),
		Entry("rows list", `{"rows":[{"id":3},{"id":3,"name":"Pune Office"}]}`, "Pune Office", true),
		Entry("empty name", `{"id":3,"name":""}`, "", false),
		Entry("no name at all", `{"id":3}`, "", false),
		Entry("array", `[{"name":"x"}]`, "", false),
	)
})
