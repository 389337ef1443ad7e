// Command import-businesses loads the exported municipal licensing dataset
// into the businesses table. The source files come out of the legacy system
// with Hebrew column names, M/D/YY dates and trailing commas, so they are
// read as JSON5 and normalized before insert.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"Rishui/Models"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// keyMap translates the Hebrew source columns (both export formats) to
// normalized keys.
var keyMap = map[string]string{
	"מס' תיק":         "fileNumber",
	"מספר תיק":        "fileNumber",
	"פריט עיסוק":      "occupationItem",
	"מהות העסק":       "businessDescription",
	"שם העסק":         "businessName",
	"בעל העסק":        "businessOwner",
	"סטטוס התיק":      "status",
	"אזור העסק":       "businessArea",
	"נייח בעסק":       "phone",
	"נייד בעסק":       "mobile",
	"רחוב העסק":       "street",
	"מספר בית":        "houseNumber",
	"תאריך ניפוק":     "issueDate",
	"תאריך פקיעה":     "expirationDate",
	"מספר רשיון":      "licenseNumber",
	"תאריך פתיחה":     "openingDate",
	"תאריך פתיחת התיק": "openingDate",
}

// areaCenters maps settlement name patterns to their map coordinates.
// Imported records carry no coordinates, so each business lands near its
// settlement center with a deterministic per-record offset.
var areaCenters = []struct {
	pattern  *regexp.Regexp
	lat, lng float64
}{
	{regexp.MustCompile("בית גוברין"), 31.622, 34.894},
	{regexp.MustCompile("ורדון"), 31.681, 34.822},
	{regexp.MustCompile("רבדים"), 31.742, 34.805},
	{regexp.MustCompile("גלאון"), 31.665, 34.748},
	{regexp.MustCompile("כפר מנחם"), 31.732, 34.842},
	{regexp.MustCompile("נגבה"), 31.742, 34.741},
	{regexp.MustCompile("שדה יואב"), 31.694, 34.776},
	{regexp.MustCompile("סגולה"), 31.695, 34.786},
	{regexp.MustCompile("נחלה"), 31.684, 34.789},
	{regexp.MustCompile("בית ניר"), 31.675, 34.847},
	{regexp.MustCompile("כפר הרי"), 31.739, 34.859},
	{regexp.MustCompile("קדמה"), 31.654, 34.878},
	{regexp.MustCompile("גת|גניר"), 31.618, 34.772},
	{regexp.MustCompile("מועצה אזורית|שטח כללי|סובב"), 31.695, 34.812},
}

const (
	defaultLat = 31.695
	defaultLng = 34.812
)

func main() {
	dataPath := flag.String("data", "data/businesses.json", "path to the exported dataset")
	flag.Parse()

	godotenv.Load()
	Models.Connect()

	raw, err := os.ReadFile(*dataPath)
	if err != nil {
		log.Fatalln("Error reading dataset:", err)
	}

	var rows []map[string]interface{}
	if err := json5.Unmarshal(raw, &rows); err != nil {
		log.Fatalln("Error parsing dataset:", err)
	}
	log.Printf("Found %d records, preparing to insert", len(rows))

	businesses := make([]Models.Business, 0, len(rows))
	for _, row := range rows {
		businesses = append(businesses, buildBusiness(normalizeKeys(row)))
	}

	deduped := dedupeByFileNumber(businesses)
	log.Printf("Deduplicated %d records down to %d", len(businesses), len(deduped))

	if err := Models.DB.CreateInBatches(deduped, 200).Error; err != nil {
		log.Fatalln("Error inserting businesses:", err)
	}
	log.Printf("Successfully imported %d businesses", len(deduped))
}

func normalizeKeys(row map[string]interface{}) map[string]string {
	out := make(map[string]string, len(row))
	for key, value := range row {
		mapped, ok := keyMap[strings.TrimSpace(key)]
		if !ok {
			continue
		}
		out[mapped] = strings.TrimSpace(fmt.Sprint(value))
	}
	return out
}

func buildBusiness(row map[string]string) Models.Business {
	status := Models.NormalizeBusinessStatus(row["status"])
	if status == "" {
		status = "application_submitted"
	}

	phone := row["mobile"]
	if phone == "" {
		phone = row["phone"]
	}

	business := Models.Business{
		BusinessName:   row["businessName"],
		OwnerName:      row["businessOwner"],
		ContactPhone:   phone,
		Address:        buildAddress(row),
		FileNumber:     row["fileNumber"],
		LicenseNumber:  row["licenseNumber"],
		Status:         status,
		IssueDate:      parseLegacyDate(row["issueDate"]),
		ExpirationDate: parseLegacyDate(row["expirationDate"]),
	}

	lat, lng := assignCoordinate(row)
	business.Latitude = &lat
	business.Longitude = &lng
	return business
}

func buildAddress(row map[string]string) string {
	parts := []string{}
	if street := row["street"]; street != "" {
		if house := row["houseNumber"]; house != "" {
			parts = append(parts, street+" "+house)
		} else {
			parts = append(parts, street)
		}
	}
	if area := row["businessArea"]; area != "" {
		parts = append(parts, area)
	}
	return strings.Join(parts, ", ")
}

// parseLegacyDate parses the legacy M/D/YY export format. Two digit years
// belong to the 2000s.
func parseLegacyDate(value string) *time.Time {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, "/")
	if len(parts) != 3 {
		return nil
	}

	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	return &t
}

// dedupeByFileNumber keeps one record per file number, preferring an open
// file over a closed one. Records without a file number pass through.
func dedupeByFileNumber(businesses []Models.Business) []Models.Business {
	byFile := make(map[string]int)
	out := make([]Models.Business, 0, len(businesses))

	for _, b := range businesses {
		if b.FileNumber == "" {
			out = append(out, b)
			continue
		}

		if idx, ok := byFile[b.FileNumber]; ok {
			if out[idx].Status == "closed" && b.Status != "closed" {
				out[idx] = b
			}
			continue
		}
		byFile[b.FileNumber] = len(out)
		out = append(out, b)
	}
	return out
}

func assignCoordinate(row map[string]string) (float64, float64) {
	area := row["businessArea"]
	lat, lng := defaultLat, defaultLng
	for _, center := range areaCenters {
		if center.pattern.MatchString(area) {
			lat, lng = center.lat, center.lng
			break
		}
	}

	seed := row["fileNumber"] + "|" + row["businessName"] + "|" + row["occupationItem"]
	lat = clamp(lat+deterministicOffset(seed+":lat", 0.0065), 31.58, 31.78)
	lng = clamp(lng+deterministicOffset(seed+":lng", 0.0080), 34.72, 34.92)
	return round6(lat), round6(lng)
}

// deterministicOffset derives a stable offset in [-spread, spread] from the
// seed text, so reimports place each business at the same spot.
func deterministicOffset(seed string, spread float64) float64 {
	var hash int32
	for _, r := range seed {
		hash = hash*31 + int32(r)
	}
	if hash < 0 {
		hash = -hash
	}
	normalized := float64(hash%1000000) / 1000000.0
	return (normalized - 0.5) * 2 * spread
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func round6(value float64) float64 {
	return float64(int64(value*1e6+0.5)) / 1e6
}
