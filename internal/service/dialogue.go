package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"carmatch/internal/catalog"
	"carmatch/internal/config"
	"carmatch/internal/model"
	"carmatch/internal/utils"
)

const (
	welcomeReply   = "ยินดีต้อนรับสู่ระบบแนะนำรถยนต์ครับ ผมพร้อมช่วยคุณหารถที่เหมาะกับคุณ!"
	recommendReply = "เราขอแนะนำรถทั้ง %d คันนี้ ลองดูรายละเอียดด้านล่างได้เลยครับ"
	noMatchReply   = "ขออภัยด้วยครับ ไม่มีรถที่มีสเปคที่คุณต้องการ ลองปรับงบประมาณ ยี่ห้อ หรือประเภทรถให้กว้างขึ้น แล้วพิมพ์ \"เริ่มใหม่\" เพื่อค้นหาอีกครั้งได้เลยครับ"

	explainConcurrency = 4
)

// Dialogue runs one conversation turn at a time: it loads the session,
// updates preferences from the user's text, then asks the next question,
// recommends vehicles or answers a follow-up.
type Dialogue struct {
	catalog   *catalog.Catalog
	extractor *Extractor
	ranker    *Ranker
	gen       Generator
	questions QuestionBank
	store     SessionStore
	turns     TurnLogger
	cfg       config.DialogueConfig
	topN      int
	log       *zap.Logger
	seed      func() int64
}

// NewDialogue wires the dialogue over a catalog and an AI client.
func NewDialogue(
	cat *catalog.Catalog,
	ai AIClient,
	store SessionStore,
	questions QuestionBank,
	rankCfg config.RankingConfig,
	cfg config.DialogueConfig,
	log *zap.Logger,
) *Dialogue {
	d := &Dialogue{
		catalog:   cat,
		extractor: NewExtractor(cat, ai, log),
		ranker:    NewRanker(cat, ai, rankCfg, log),
		gen:       ai,
		questions: questions,
		store:     store,
		cfg:       cfg,
		topN:      rankCfg.TopN,
		log:       log.Named("dialogue"),
		seed:      func() int64 { return time.Now().UnixNano() },
	}
	if cfg.Seed != 0 {
		d.seed = func() int64 { return cfg.Seed }
	}
	return d
}

// SetTurnLogger enables per-turn logging.
func (d *Dialogue) SetTurnLogger(l TurnLogger) {
	d.turns = l
}

// Handle processes one user turn. Errors come only from the session store;
// failed AI calls fall back to canned text.
func (d *Dialogue) Handle(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	start := time.Now()
	text := strings.TrimSpace(req.Message)

	if req.Reset || IsResetCommand(text) {
		return d.Reset(ctx, req.SessionID)
	}

	prefs, err := d.store.Load(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if prefs == nil {
		prefs = model.NewPreferences(d.seed())
	}
	prefs.EnsureAskOrder()
	prefs.Turn++

	resp := d.turn(ctx, prefs, text)
	resp.SessionID = req.SessionID

	if err := d.store.Save(ctx, req.SessionID, prefs); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	took := time.Since(start)
	resp.Took = took.Milliseconds()
	d.log.Debug("turn handled",
		zap.String("session_id", req.SessionID),
		zap.String("mode", resp.Mode),
		zap.String("stage", string(prefs.Stage)),
		zap.String("pending", string(prefs.PendingSlot)),
		zap.Duration("took", took),
	)
	if d.turns != nil {
		d.turns.LogTurn(ctx, model.TurnLog{
			SessionID:      req.SessionID,
			UserText:       text,
			Mode:           resp.Mode,
			Stage:          prefs.Stage,
			CandidateIDs:   slices.Clone(prefs.LastCandidates),
			ResponseTimeMs: int(took.Milliseconds()),
		})
	}
	return resp, nil
}

// Reset starts the conversation over and greets the user with the first
// question.
func (d *Dialogue) Reset(ctx context.Context, sessionID string) (*model.ChatResponse, error) {
	if err := d.store.Clear(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to clear session: %w", err)
	}

	prefs := model.NewPreferences(d.seed())
	first := prefs.AskOrder[0]
	q := d.questions.Fallback(first, 0, "")
	prefs.PendingSlot = first
	prefs.LastQuestion = q

	if err := d.store.Save(ctx, sessionID, prefs); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &model.ChatResponse{SessionID: sessionID, Mode: model.ModeIntro, Reply: welcomeReply, Next: q}, nil
}

func (d *Dialogue) turn(ctx context.Context, prefs *model.Preferences, text string) *model.ChatResponse {
	if prefs.Stage == model.StageResults {
		d.extractor.FreshSignals(prefs, text)
		if IsNewRecommendation(text) {
			return d.recommend(ctx, prefs, text, true)
		}
		return d.followup(ctx, prefs, text)
	}

	if slot := prefs.PendingSlot; slot != "" {
		prefs.PendingSlot = ""
		d.extractor.ResolvePending(prefs, slot, text)
	} else {
		d.extractor.ExtractGeneral(ctx, prefs, text)
	}

	if slot, ok := prefs.NextMissing(); ok {
		return d.ask(ctx, prefs, slot)
	}
	if !prefs.ExtraAsked {
		prefs.ExtraAsked = true
		prefs.Stage = model.StageAwaitingExtra
		return d.ask(ctx, prefs, model.SlotExtra)
	}
	return d.recommend(ctx, prefs, text, false)
}

// ask phrases a question for slot and marks it pending. The generated
// wording is used only when it is non-empty, short enough and different
// from the last question.
func (d *Dialogue) ask(ctx context.Context, prefs *model.Preferences, slot model.Slot) *model.ChatResponse {
	base := d.questions.Fallback(slot, prefs.Turn, prefs.LastQuestion)

	out := d.gen.Question(ctx, QuestionRequest{
		Slot:         string(slot),
		BaseQuestion: base,
		LastQuestion: prefs.LastQuestion,
		Known:        knownSlots(prefs),
	})
	if !out.OK() {
		d.log.Debug("question generation failed", zap.String("slot", string(slot)), zap.Error(out.Err))
	}
	q := CleanQuestion(out.Or(""))
	if q == "" || (d.cfg.MaxQuestionRunes > 0 && utils.RuneLen(q) > d.cfg.MaxQuestionRunes) || q == prefs.LastQuestion {
		q = base
	}

	prefs.PendingSlot = slot
	prefs.LastQuestion = q
	return &model.ChatResponse{Mode: model.ModeAsk, Reply: q}
}

// recommend ranks the catalog and renders the result. fresh excludes
// vehicles already shown in this conversation.
func (d *Dialogue) recommend(ctx context.Context, prefs *model.Preferences, text string, fresh bool) *model.ChatResponse {
	d.extractor.InferSeries(prefs, text)
	query := RankQuery(text, prefs)

	opts := RankOptions{TopN: d.topN}
	if fresh {
		opts.Exclude = prefs.Shown
	}
	results := d.ranker.Rank(ctx, query, prefs, opts)

	prefs.PendingSlot = ""
	prefs.Stage = model.StageResults
	prefs.LastCandidates = nil
	if len(results) == 0 {
		return &model.ChatResponse{Mode: model.ModeRecommend, Reply: noMatchReply}
	}

	for _, sv := range results {
		prefs.LastCandidates = append(prefs.LastCandidates, sv.Vehicle.ID)
		if !slices.Contains(prefs.Shown, sv.Vehicle.ID) {
			prefs.Shown = append(prefs.Shown, sv.Vehicle.ID)
		}
	}

	explanations := d.explain(ctx, results, query)
	summaries := make([]model.VehicleSummary, len(results))
	for i, sv := range results {
		summaries[i] = Summarize(i+1, sv, explanations[i])
	}
	return &model.ChatResponse{
		Mode:    model.ModeRecommend,
		Reply:   fmt.Sprintf(recommendReply, len(results)),
		Results: summaries,
	}
}

// explain generates one explanation per vehicle in parallel. Order follows
// results; a failed or empty generation gets the templated text.
func (d *Dialogue) explain(ctx context.Context, results []model.ScoredVehicle, query string) []string {
	if d.cfg.ExplainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ExplainTimeout)
		defer cancel()
	}

	out := make([]string, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(explainConcurrency)
	for i, sv := range results {
		i, sv := i, sv
		g.Go(func() error {
			fallback := TemplateExplanation(sv.Vehicle)
			text := strings.TrimSpace(d.gen.Explain(gctx, ContextOf(sv.Vehicle), query).Or(fallback))
			if text == "" {
				text = fallback
			}
			out[i] = text
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// knownSlots summarizes filled slots for question generation.
func knownSlots(prefs *model.Preferences) map[string]string {
	known := map[string]string{}
	if prefs.HasPrice() {
		lo, hi := "-", "-"
		if prefs.PriceMin != nil {
			lo = PriceText(*prefs.PriceMin)
		}
		if prefs.PriceMax != nil {
			hi = PriceText(*prefs.PriceMax)
		}
		known[string(model.SlotPrice)] = lo + "-" + hi
	}
	for slot, v := range map[model.Slot]string{
		model.SlotMake:         prefs.Make,
		model.SlotSeries:       prefs.Series,
		model.SlotUsage:        prefs.UsageText,
		model.SlotTransmission: prefs.Transmission,
		model.SlotFuel:         prefs.Fuel,
		model.SlotDrivetrain:   prefs.Drivetrain,
		model.SlotBody:         prefs.Body,
	} {
		if v != "" {
			known[string(slot)] = v
		}
	}
	return known
}
