// Package Scrapper pulls the national licensing-item catalog from the
// government site and keeps the local catalog table in sync with it.
package Scrapper

import (
	"errors"
	"log"
	"strings"

	"Rishui/Models"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const catalogURL = "https://www.gov.il/he/departments/dynamiccollectors/business_licensing_items"

// approvalColumns maps the table column order to the regulator flag it
// feeds. The catalog page marks a required approval with a check glyph.
var approvalColumns = []struct {
	index int
	set   func(*Models.LicensingItem, int)
}{
	{3, func(it *Models.LicensingItem, v int) { it.NeedsPoliceApproval = v }},
	{4, func(it *Models.LicensingItem, v int) { it.NeedsFireDeptApproval = v }},
	{5, func(it *Models.LicensingItem, v int) { it.NeedsHealthMinistryApproval = v }},
	{6, func(it *Models.LicensingItem, v int) { it.NeedsEnvironmentalProtectionApproval = v }},
	{7, func(it *Models.LicensingItem, v int) { it.NeedsAgricultureMinistryApproval = v }},
	{8, func(it *Models.LicensingItem, v int) { it.NeedsLaborMinistryApproval = v }},
}

var trackLabels = map[string]string{
	"רגיל":      Models.TrackRegular,
	"מזורז א":   Models.TrackExpeditedA,
	"מזורז ב":   Models.TrackExpeditedB,
	"תצהיר":     Models.TrackAffidavit,
	"על יסוד תצהיר": Models.TrackAffidavit,
}

// FetchLicensingItems crawls the catalog page and returns the parsed items.
func FetchLicensingItems() ([]Models.LicensingItem, error) {
	var items []Models.LicensingItem

	client := colly.NewCollector()
	client.OnHTML("table.licensing-items tbody", func(h *colly.HTMLElement) {
		h.ForEach("tr", func(_ int, tr *colly.HTMLElement) {
			if item, ok := parseItemRow(tr.DOM); ok {
				items = append(items, item)
			}
		})
	})

	if err := client.Visit(catalogURL); err != nil {
		return nil, err
	}
	client.Wait()

	if len(items) == 0 {
		return nil, errors.New("catalog page returned no items")
	}
	return items, nil
}

// parseItemRow reads one catalog table row. Rows missing an item number are
// section headers and get skipped.
func parseItemRow(row *goquery.Selection) (Models.LicensingItem, bool) {
	var item Models.LicensingItem

	cells := row.Find("td")
	if cells.Length() < 3 {
		return item, false
	}

	item.ItemNumber = strings.TrimSpace(cells.Eq(0).Text())
	if item.ItemNumber == "" {
		return item, false
	}
	item.Name = strings.TrimSpace(cells.Eq(1).Text())

	track := strings.TrimSpace(cells.Eq(2).Text())
	item.LicensingTrack = Models.TrackRegular
	if canonical, ok := trackLabels[track]; ok {
		item.LicensingTrack = canonical
	}

	for _, column := range approvalColumns {
		if column.index >= cells.Length() {
			break
		}
		value := 0
		if cellMarked(cells.Eq(column.index)) {
			value = 1
		}
		column.set(&item, value)
	}

	item.ValidityYears = 1
	return item, true
}

func cellMarked(cell *goquery.Selection) bool {
	text := strings.TrimSpace(cell.Text())
	return text == "V" || text == "✓" || strings.Contains(text, "כן")
}

// SyncLicensingItems crawls the catalog and upserts it into the local
// table, keyed on item number. Returns how many rows were written.
func SyncLicensingItems(db *gorm.DB) (int, error) {
	items, err := FetchLicensingItems()
	if err != nil {
		return 0, err
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "item_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "licensing_track",
			"needs_police_approval", "needs_fire_dept_approval",
			"needs_health_ministry_approval", "needs_environmental_protection_approval",
			"needs_agriculture_ministry_approval", "needs_labor_ministry_approval",
		}),
	}).Create(&items).Error
	if err != nil {
		return 0, err
	}

	log.Printf("Licensing catalog synced, %d items", len(items))
	return len(items), nil
}
