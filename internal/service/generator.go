package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	questionQuotes    = regexp.MustCompile(`^['"“”]+|['"“”]+$`)
	questionPreamble  = regexp.MustCompile(`(?i)^(แน่นอน(เลย)?!?|ได้เลย(ครับ)?!?|โอเค(ครับ)?!?)[\s,:-]*`)
	questionLeadIn    = regexp.MustCompile(`(?i)^(ลอง(ปรับ|ถาม)ว่า|คุณอาจจะถามว่า|ตัวอย่างเช่น|เช่น)[:\s-]*`)
	questionTrailings = " .!~"
)

// CleanQuestion strips quoting and stock preambles from a generated
// question, keeps only the first sentence up to '?', and makes sure it ends
// with '?'.
func CleanQuestion(q string) string {
	q = strings.TrimSpace(q)
	q = questionQuotes.ReplaceAllString(q, "")
	q = questionPreamble.ReplaceAllString(q, "")
	q = questionLeadIn.ReplaceAllString(q, "")
	if i := strings.Index(q, "?"); i >= 0 {
		q = strings.TrimSpace(q[:i]) + "?"
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	if !strings.HasSuffix(q, "?") {
		q = strings.TrimRight(q, questionTrailings) + "?"
	}
	return q
}

const questionerPrompt = `คุณเป็นผู้ช่วยขายรถยนต์ ตอบเป็น "คำถามเดียว" ที่สุภาพและเป็นกันเอง
พูดกระชับ ไม่เกินหนึ่งประโยค
ห้ามใช้คำเกริ่น เช่น 'แน่นอนครับ', 'เข้าใจแล้วครับ'
ต้องลงท้ายด้วยเครื่องหมาย '?' เท่านั้น`

// Question rewrites the base question for slot in a natural register.
func (c *OpenAIClient) Question(ctx context.Context, req QuestionRequest) Outcome[string] {
	keys := make([]string, 0, len(req.Known))
	for k := range req.Known {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+req.Known[k])
	}
	known := strings.Join(parts, ", ")
	if known == "" {
		known = "-"
	}

	user := fmt.Sprintf("รีเขียนประโยคคำถามต่อผู้ใช้ให้สุภาพ เป็นกันเอง กระชับ และเป็นธรรมชาติ\nบริบท: %s\nคำถามตั้งต้น: \"%s\"\nคำถามก่อนหน้า: \"%s\"",
		known, req.BaseQuestion, req.LastQuestion)

	content, err := c.complete(ctx, questionerPrompt, user, 0.7, 60, false)
	if err != nil {
		return Failure[string](err)
	}
	q := CleanQuestion(content)
	if q == "" {
		return Failure[string](fmt.Errorf("%w: empty question", ErrUnusableOutput))
	}
	return Success(q)
}

// Explain writes two or three sentences on why vehicle suits the request.
func (c *OpenAIClient) Explain(ctx context.Context, vehicle VehicleContext, userQuery string) Outcome[string] {
	user := fmt.Sprintf("จากข้อมูลรถ:\n%s\nผู้ใช้ต้องการ: \"%s\"\n"+
		"ช่วยสรุปแบบภาษาคนคุยกัน เป็น 2–3 ประโยค อ่านง่าย ตรงประเด็น "+
		"อธิบายว่ารุ่นนี้เด่นหรือเหมาะเพราะอะไร พร้อมข้อสังเกตสั้น ๆ หากมี ยึดจากข้อมูลข้างบนเท่านั้น",
		vehicle.Block(), userQuery)
	return c.text(ctx, "คุณคือนักขายรถที่อธิบายเก่ง พูดเป็นกันเอง อิงข้อมูลที่ให้เท่านั้น", user, 0.7, 700)
}

// Detail summarises one vehicle: strengths, limits, best use.
func (c *OpenAIClient) Detail(ctx context.Context, vehicle VehicleContext, userText string) Outcome[string] {
	user := fmt.Sprintf("สรุปให้เป็นหัวข้อสั้น: จุดเด่นหลัก, ข้อจำกัด, การใช้งานที่เหมาะ (ในเมือง/ทางไกล/ครอบครัว) "+
		"อ้างจากข้อมูลที่ให้เท่านั้น ปิดท้ายด้วย **เหมาะกับใคร**\n\n%s\nคำถามผู้ใช้: %s", vehicle.Block(), userText)
	return c.text(ctx, "ผู้เชี่ยวชาญรถยนต์ ตอบสั้น กระชับ จากข้อมูลที่ให้", user, 0.5, 500)
}

// Compare contrasts the vehicles under short headings.
func (c *OpenAIClient) Compare(ctx context.Context, vehicles []VehicleContext, userText string) Outcome[string] {
	user := fmt.Sprintf("%s\n\nคำถามผู้ใช้: \"%s\"\n\n"+
		"เปรียบเทียบรถทุกคันข้างบนเป็นหัวข้อสั้น ๆ (ราคา เครื่องยนต์ เชื้อเพลิง การใช้งาน) "+
		"อิงเฉพาะข้อมูลที่ให้ ปิดท้ายด้วยบรรทัดสรุปว่าคันไหนเหมาะกับใคร",
		ContextLines(vehicles), userText)
	return c.text(ctx, followupSystemPrompt, user, 0.6, 1000)
}

const followupSystemPrompt = "คุณคือที่ปรึกษารถยนต์ที่คุยเป็นกันเอง ตอบสั้นเป็นธรรมชาติ " +
	"ไม่ลิสต์ยาวเกินจำเป็น เว้นแต่ผู้ใช้ต้องการเปรียบเทียบละเอียด " +
	"อ้างอิงเฉพาะข้อมูลที่ให้เท่านั้น หากข้อมูลไม่พอให้บอกอย่างซื่อสัตย์"

// Followup answers a free question about the last recommendation.
func (c *OpenAIClient) Followup(ctx context.Context, vehicles []VehicleContext, userText string) Outcome[string] {
	user := fmt.Sprintf("%s\n\nคำถามผู้ใช้: \"%s\"\n\n"+
		"คำสั่งการเขียนคำตอบ:\n"+
		"1) ตอบเป็นภาษาไทยแบบคุยธรรมชาติ สั้น กระชับ\n"+
		"2) ถ้าคำถามเป็นแบบ \"คันไหน...ที่สุด/ดีกว่า\" ให้เลือกมา 1 คัน พร้อมเหตุผลสั้น ๆ 2–4 ข้อ\n"+
		"3) อิงเฉพาะข้อมูลของรถชุดนี้ ห้ามอ้างรุ่นอื่นหรือเติมข้อมูลที่ไม่มี\n"+
		"4) ปิดท้ายด้วยบรรทัดสรุปสั้น ๆ ว่าเหมาะกับใครหรือสถานการณ์ไหน",
		ContextLines(vehicles), userText)
	return c.text(ctx, followupSystemPrompt, user, 0.6, 1000)
}

func (c *OpenAIClient) text(ctx context.Context, system, user string, temperature float64, maxTokens int) Outcome[string] {
	content, err := c.complete(ctx, system, user, temperature, maxTokens, false)
	if err != nil {
		return Failure[string](err)
	}
	return Success(content)
}

// Block renders the vehicle as labelled lines.
func (v VehicleContext) Block() string {
	return fmt.Sprintf("รุ่น: %s\nซีรีส์/รุ่นย่อย: %s\nปี: %s\nราคา: %s บาท\nเครื่องยนต์: %s\nแรงม้า: %s\nเชื้อเพลิง: %s\nเกียร์: %s\nขับเคลื่อน: %s\nรายละเอียด: %s\n",
		v.Name, v.Series, v.Year, v.Price, v.Engine, v.Horsepower, v.Fuel, v.Gears, v.Drivetrain, v.Description)
}

// ContextLines renders vehicles as one numbered line each.
func ContextLines(vehicles []VehicleContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "สรุปรถ %d รุ่นล่าสุด (ย่อ):", len(vehicles))
	for i, v := range vehicles {
		fmt.Fprintf(&b, "\n%d. %s | ปี %s | ราคา %s | เครื่อง %s | แรงม้า %s | เชื้อเพลิง %s | เกียร์ %s | ขับเคลื่อน %s",
			i+1, v.Name, v.Year, v.Price, v.Engine, v.Horsepower, v.Fuel, v.Gears, v.Drivetrain)
	}
	return b.String()
}
