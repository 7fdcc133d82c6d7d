package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"carmatch/internal/catalog"
	"carmatch/internal/model"
)

var errFake = errors.New("fake failure")

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func testVehicles() ([]model.Vehicle, [][]float32) {
	vehicles := []model.Vehicle{
		{ID: "1", Name: "Toyota Yaris Ativ 1.2 Smart", Make: "Toyota", Series: "Yaris Ativ", Year: intp(2024), Price: 549000,
			EngineL: floatp(1.2), EngineCC: intp(1197), Horsepower: intp(94), Fuel: "petrol", Gearbox: "CVT", Drivetrain: "fwd", Body: "sedan"},
		{ID: "2", Name: "Nissan Navara Calibre 2.3 M/T", Make: "Nissan", Series: "Navara", Year: intp(2023), Price: 899000,
			EngineL: floatp(2.3), EngineCC: intp(2298), Horsepower: intp(190), Fuel: "diesel", Gears: intp(6), Gearbox: "6 สปีด manual", Drivetrain: "rwd", Body: "pickup"},
		{ID: "3", Name: "Honda CR-V e:HEV RS", Make: "Honda", Series: "CR-V", Year: intp(2024), Price: 1599000,
			EngineL: floatp(2.0), EngineCC: intp(1993), Horsepower: intp(184), Fuel: "hybrid", Gearbox: "e-CVT", Drivetrain: "awd", Body: "suv"},
		{ID: "4", Name: "Toyota Fortuner 2.4 Leader A/T", Make: "Toyota", Series: "Fortuner", Year: intp(2024), Price: 1500000,
			EngineL: floatp(2.4), EngineCC: intp(2393), Horsepower: intp(150), Fuel: "diesel", Gears: intp(6), Gearbox: "6 สปีด auto", Drivetrain: "4wd", Body: "suv"},
		{ID: "5", Name: "Mazda2 Sedan 1.3 S", Make: "Mazda", Series: "Mazda2", Year: intp(2023), Price: 629000,
			EngineL: floatp(1.3), EngineCC: intp(1298), Horsepower: intp(93), Fuel: "petrol", Gears: intp(6), Gearbox: "6AT", Drivetrain: "fwd", Body: "sedan"},
		{ID: "6", Name: "Toyota Hilux Revo 2.4 Entry M/T", Make: "Toyota", Series: "Hilux Revo", Year: intp(2023), Price: 700000,
			EngineL: floatp(2.4), EngineCC: intp(2393), Horsepower: intp(150), Fuel: "diesel", Gears: intp(6), Gearbox: "6 สปีด ธรรมดา", Drivetrain: "rwd", Body: "pickup"},
		{ID: "7", Name: "Honda City 1.0 Turbo SV", Make: "Honda", Series: "City", Year: intp(2024), Price: 609000,
			EngineL: floatp(1.0), EngineCC: intp(988), Horsepower: intp(122), Fuel: "petrol", Gearbox: "CVT", Drivetrain: "fwd", Body: "sedan"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.5, 0.5, 0},
		{0.9, 0.1, 0},
		{0.2, 0.9, 0.1},
		{0.8, 0, 0.2},
	}
	return vehicles, vectors
}

func testCatalog() *catalog.Catalog {
	return catalog.New(testVehicles())
}

// fakeAI is a scripted AIClient. Zero values make every call fail, which
// exercises the fallback paths.
type fakeAI struct {
	vector    []float32
	slots     *AISlotResponse
	question  string
	explain   string
	detail    string
	compare   string
	followup  string
	mu        sync.Mutex
	calls     map[string]int
	lastInput map[string]string
}

func (f *fakeAI) record(name, input string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
		f.lastInput = map[string]string{}
	}
	f.calls[name]++
	f.lastInput[name] = input
}

func (f *fakeAI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAI) input(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInput[name]
}

func scripted(name, out string) Outcome[string] {
	if out == "" {
		return Failure[string](errFake)
	}
	return Success(out)
}

func (f *fakeAI) IsEnabled() bool { return true }

func (f *fakeAI) Embed(_ context.Context, text string) Outcome[[]float32] {
	f.record("embed", text)
	if f.vector == nil {
		return Failure[[]float32](errFake)
	}
	return Success(f.vector)
}

func (f *fakeAI) ExtractSlots(_ context.Context, text string) Outcome[*AISlotResponse] {
	f.record("slots", text)
	if f.slots == nil {
		return Failure[*AISlotResponse](errFake)
	}
	return Success(f.slots)
}

func (f *fakeAI) Question(_ context.Context, req QuestionRequest) Outcome[string] {
	f.record("question", req.Slot)
	return scripted("question", f.question)
}

func (f *fakeAI) Explain(_ context.Context, v VehicleContext, query string) Outcome[string] {
	f.record("explain", query)
	return scripted("explain", f.explain)
}

func (f *fakeAI) Detail(_ context.Context, v VehicleContext, text string) Outcome[string] {
	f.record("detail", v.Name)
	return scripted("detail", f.detail)
}

func (f *fakeAI) Compare(_ context.Context, vs []VehicleContext, text string) Outcome[string] {
	f.record("compare", text)
	return scripted("compare", f.compare)
}

func (f *fakeAI) Followup(_ context.Context, vs []VehicleContext, text string) Outcome[string] {
	f.record("followup", text)
	return scripted("followup", f.followup)
}

var _ AIClient = (*fakeAI)(nil)

func nopLogger() *zap.Logger { return zap.NewNop() }
