package export_test

import (
	"bytes"
	"encoding/csv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/export"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
)

var _ = Describe("RenderCSV", func() {
	It("writes only the header for zero rows", func() {
		out, err := export.RenderCSV(export.NewTable(normalize.AssetLayout, nil))
		Expect(err).NotTo(HaveOccurred())

		records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0]).To(Equal(normalize.AssetLayout.Header()))
	})

	It("quotes values containing separators", func() {
		rows := []normalize.Row{{"id": 1, "name": `Desk, "large"`}}
		out, err := export.RenderCSV(export.NewTable(normalize.UserLayout, rows))
		Expect(err).NotTo(HaveOccurred())

		records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[1][1]).To(Equal(`Desk, "large"`))
	})
})

var _ = Describe("RenderXLSX", func() {
	It("writes a workbook with a header row and one row per record", func() {
		rows := []normalize.Row{{"id": 7, "username": "asha"}, {"id": 8, "username": "ravi"}}
		out, err := export.RenderXLSX(export.NewTable(normalize.UserLayout, rows))
		Expect(err).NotTo(HaveOccurred())

		f, err := excelize.OpenReader(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		Expect(f.GetSheetList()).To(Equal([]string{"Users"}))
		got, err := f.GetRows("Users")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(3))
		Expect(got[0][0]).To(Equal("id"))
		Expect(got[1][0]).To(Equal("7"))
		Expect(got[2][4]).To(Equal("ravi"))
	})
})

var _ = Describe("Filename", func() {
	It("replaces colons and dots in the UTC timestamp", func() {
		at := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("IST", 5*3600+1800))
		Expect(export.Filename("assets", export.FormatCSV, at)).To(Equal("assets-2026-03-03T23-36-07-890Z.csv"))
		Expect(export.Filename("users", export.FormatXLSX, at)).To(Equal("users-2026-03-03T23-36-07-890Z.xlsx"))
	})
})
