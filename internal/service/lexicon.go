package service

import (
	"strings"

	"carmatch/internal/utils"
)

// category is one row of an ordered keyword table. The first row with a hit
// wins, so table order is part of the behaviour.
type category struct {
	name     string
	keywords []string
}

func firstCategory(text string, table []category) string {
	for _, c := range table {
		if utils.ContainsAny(text, c.keywords...) {
			return c.name
		}
	}
	return ""
}

func allCategories(text string, table []category) []string {
	var out []string
	for _, c := range table {
		if utils.ContainsAny(text, c.keywords...) {
			out = append(out, c.name)
		}
	}
	return out
}

const (
	TransmissionAuto   = "AT"
	TransmissionManual = "MT"

	DriveAll   = "4WD/AWD"
	DriveFront = "FWD"
	DriveRear  = "RWD"

	UsageLongDistance = "long_distance"
	UsageInCity       = "in_city"
)

var transmissionTable = []category{
	{TransmissionAuto, []string{"ออโต้", "อัตโนมัติ", "auto", "at", "cvt", "dct", "เกียร์อัตโนมัติ"}},
	{TransmissionManual, []string{"ธรรมดา", "เกียร์ธรรมดา", "manual", "mt"}},
}

var fuelTable = []category{
	{"diesel", []string{"ดีเซล", "diesel"}},
	{"petrol", []string{"เบนซิน", "gasoline", "petrol"}},
	{"hybrid", []string{"ไฮบริด", "hybrid", "hev", "mhev", "phev", "ปลั๊กอิน"}},
	{"ev", []string{"ไฟฟ้า", "ev", "bev"}},
}

var bodyTable = []category{
	{"sedan", []string{"ซีดาน", "sedan", "เก๋ง", "รถเก๋ง"}},
	{"suv", []string{"suv", "เอสยูวี"}},
	{"mpv", []string{"mpv", "ครอบครัว", "7ที่นั่ง", "7 ที่นั่ง", "อเนกประสงค์"}},
	{"hatchback", []string{"แฮทช์", "hatch"}},
	{"pickup", []string{"กระบะ", "ปิคอัพ", "ปิกอัพ", "pickup", "รถกระบะ"}},
}

var driveTable = []category{
	{DriveAll, []string{"4wd", "awd", "4x4", "ขับสี่", "สี่ล้อ", "ขับเคลื่อนสี่ล้อ"}},
	{DriveFront, []string{"fwd", "ขับหน้า", "ล้อหน้า"}},
	{DriveRear, []string{"rwd", "ขับหลัง", "ล้อหลัง"}},
}

var usageTable = []category{
	{UsageLongDistance, []string{"เดินทางไกล", "ทางไกล", "ต่างจังหวัด", "ท่องเที่ยว"}},
	{UsageInCity, []string{"ในเมือง", "ไปทำงาน", "รถติด"}},
	{"family", []string{"ครอบครัว"}},
	{"offroad", []string{"ออฟโรด", "ลุย"}},
	{"cargo", []string{"บรรทุก", "ขนของ"}},
	{"economy", []string{"ประหยัดน้ำมัน"}},
	{"spacious", []string{"กว้าง"}},
	{"compact", []string{"คอมแพค", "คันเล็ก"}},
	{"mountain", []string{"ขึ้นเขา"}},
}

// notUsageVocabulary marks answers about performance or gearboxes, which
// are never a usage description.
var notUsageVocabulary = []string{
	"แรงม้า", "แรงสุด", "เร็ว", "ความเร็ว", "0-100", "แรง",
	"เกียร์", "ออโต้", "อัตโนมัติ", "ธรรมดา", "manual", "mt", "at", "cvt", "dct",
}

// bodyAliases maps catalog body labels onto the body categories.
var bodyAliases = map[string]string{
	"pickup": "pickup", "truck": "pickup", "กระบะ": "pickup",
	"sedan": "sedan", "saloon": "sedan", "เก๋ง": "sedan", "รถเก๋ง": "sedan",
	"suv": "suv",
	"mpv": "mpv", "van": "mpv",
	"hatchback": "hatchback",
}

// NormalizeBody maps a catalog body label to its category.
func NormalizeBody(raw string) string {
	b := strings.ToLower(strings.TrimSpace(raw))
	if n, ok := bodyAliases[b]; ok {
		return n
	}
	return b
}

var negativePhrases = []string{
	"ไม่มี", "ไม่เน้น", "อะไรก็ได้", "เฉยๆ", "เฉย ๆ", "ยัง", "ไม่", "ข้าม",
	"no", "none", "skip", "ไม่ระบุ", "แล้วแต่", "ไม่กำหนด", "รุ่นไหนก็ได้",
}

const maxNegativeRunes = 16

// IsNegativeAnswer reports whether text declines to answer: it equals a
// negative phrase, or is a short reply starting with one.
func IsNegativeAnswer(text string) bool {
	t := utils.NormalizeText(text)
	if t == "" {
		return false
	}
	for _, p := range negativePhrases {
		if t == p {
			return true
		}
	}
	if utils.RuneLen(t) > maxNegativeRunes {
		return false
	}
	for _, p := range negativePhrases {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

var resetPhrases = []string{
	"เริ่มใหม่", "เริ่มต้นใหม่", "รีเซ็ต", "reset", "เริ่มระบบใหม่", "เริ่มต้นการค้นหาใหม่",
	"อยากเริ่มใหม่", "อยากได้คำแนะนำใหม่", "อยากให้แนะนำใหม่", "แนะนำใหม่",
	"หารถใหม่ให้หน่อย", "อยากหารถใหม่", "ขอเริ่มใหม่", "ขอคำแนะนำใหม่",
}

// IsResetCommand reports whether text asks to start over.
func IsResetCommand(text string) bool {
	t := utils.NormalizeText(text)
	for _, p := range resetPhrases {
		if t == p || strings.Contains(t, p) {
			return true
		}
	}
	return false
}

var newRecommendationPhrases = []string{
	"ขอใหม่", "หาใหม่", "แนะนำอีกที", "สุ่มใหม่", "อีก 5 คัน", "แนะนำชุดใหม่", "ขอชุดใหม่", "คันอื่น",
}

// IsNewRecommendation reports whether text asks for a different set of
// vehicles under the same preferences.
func IsNewRecommendation(text string) bool {
	return utils.ContainsAny(utils.NormalizeText(text), newRecommendationPhrases...)
}

var efficiencyKeywords = []string{"ประหยัด", "กินน้ำมัน", "อัตราสิ้นเปลือง", "กม/ลิตร", "km/l"}

var compareKeywords = []string{"เทียบ", "ต่างกัน", "vs", "เปรียบเทียบ"}

// dontCareSeries are series answers that mean no preference.
var dontCareSeries = []string{"อะไรก็ได้", "ไหนก็ได้", "ก็ได้", "ไม่ระบุ", "ไม่มี", "any"}
