package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmatch/internal/model"
)

type fakePort struct {
	sent   []model.ChatRequest
	resets []string
	reply  *model.ChatResponse
	err    error
}

func (f *fakePort) Handle(_ context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	f.sent = append(f.sent, req)
	return f.reply, f.err
}

func (f *fakePort) Reset(_ context.Context, sessionID string) (*model.ChatResponse, error) {
	f.resets = append(f.resets, sessionID)
	return &model.ChatResponse{Mode: model.ModeIntro, Reply: "สวัสดีครับ", Next: "งบเท่าไหร่ครับ?"}, nil
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestModel_EnterSendsMessage(t *testing.T) {
	port := &fakePort{reply: &model.ChatResponse{Mode: model.ModeAsk, Reply: "ชอบยี่ห้อไหนครับ?"}}
	m := sized(New(port, "s1"))
	m.busy = false

	m.input.SetValue("ไม่เกิน 8 แสน")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	require.Len(t, port.sent, 1)
	assert.Equal(t, "s1", port.sent[0].SessionID)
	assert.Equal(t, "ไม่เกิน 8 แสน", port.sent[0].Message)

	next, _ = m.Update(msg)
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, "โหมด: ask", m.status)
	assert.Contains(t, m.lines[len(m.lines)-1], "ชอบยี่ห้อไหนครับ?")
}

func TestModel_IgnoresEnterWhileBusy(t *testing.T) {
	port := &fakePort{}
	m := sized(New(port, "s1"))

	m.input.SetValue("hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, port.sent)
}

func TestModel_InitResets(t *testing.T) {
	port := &fakePort{}
	m := New(port, "s1")

	msg := m.reset()()
	assert.Equal(t, []string{"s1"}, port.resets)

	next, _ := sized(m).Update(msg)
	view := next.(Model)
	require.Len(t, view.lines, 1)
	assert.Contains(t, view.lines[0], "งบเท่าไหร่ครับ?")
}

func TestModel_ShowsErrors(t *testing.T) {
	m := sized(New(&fakePort{}, "s1"))
	next, _ := m.Update(replyMsg{err: errors.New("store down")})
	assert.Equal(t, "ผิดพลาด: store down", next.(Model).status)
}

func TestRenderResponse(t *testing.T) {
	out := RenderResponse(&model.ChatResponse{
		Reply: "แนะนำ 1 คัน",
		Results: []model.VehicleSummary{{
			Rank: 1, Name: "Toyota Yaris Ativ", Price: 549000,
			EngineText: "1.2 L (1197 cc)", HPText: "94 แรงม้า", FuelText: "เบนซิน",
			GearsText: "CVT", DriveText: "FWD", Explanation: "ประหยัด",
		}},
	})
	assert.Contains(t, out, "Toyota Yaris Ativ")
	assert.Contains(t, out, "549,000 บาท")
	assert.Contains(t, out, "1.2 L (1197 cc) | 94 แรงม้า | เบนซิน | CVT | FWD")
	assert.Contains(t, out, "ประหยัด")
}
