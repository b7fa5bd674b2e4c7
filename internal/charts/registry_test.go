package charts

import (
	"testing"

	"github.com/vitalis-app/rosnode-agent/internal/models"
)

func numeric(id, dim string) models.Chart {
	return models.Chart{
		ID:   id,
		Type: models.ChartLine,
		Dimensions: []models.Dimension{
			{ID: dim, Algorithm: models.AlgorithmAbsolute, Multiplier: 1, Divisor: 1},
		},
	}
}

func text(id, dim string) models.Chart {
	return models.Chart{ID: id, Type: models.ChartString, Dimensions: []models.Dimension{{ID: dim}}}
}

func TestNew_Validation(t *testing.T) {
	zeroDiv := numeric("z", "zd")
	zeroDiv.Dimensions[0].Divisor = 0

	tests := []struct {
		name    string
		charts  []models.Chart
		wantErr bool
	}{
		{"valid", []models.Chart{numeric("a", "x"), text("b", "y")}, false},
		{"empty chart id", []models.Chart{numeric("", "x")}, true},
		{"duplicate chart", []models.Chart{numeric("a", "x"), numeric("a", "y")}, true},
		{"duplicate dimension", []models.Chart{numeric("a", "x"), text("b", "x")}, true},
		{"no dimensions", []models.Chart{{ID: "a", Type: models.ChartLine}}, true},
		{"zero divisor", []models.Chart{zeroDiv}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.charts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_IsImmutable(t *testing.T) {
	src := numeric("a", "x")
	reg := MustNew(src)

	src.Dimensions[0].ID = "mutated"
	got := reg.Charts()
	if got[0].Dimensions[0].ID != "x" {
		t.Error("registry shares memory with its input")
	}

	got[0].Dimensions[0].ID = "mutated"
	if again := reg.Charts(); again[0].Dimensions[0].ID != "x" {
		t.Error("registry shares memory with its output")
	}
}

func TestRegistry_Fill(t *testing.T) {
	reg := MustNew(numeric("a", "count"), text("b", "names"), text("c", "info"))

	values := models.Values{"names": "/talker"}
	reg.Fill(values)

	if values["count"] != int64(0) {
		t.Errorf("count = %#v, want int64(0)", values["count"])
	}
	if values["names"] != "/talker" {
		t.Errorf("present value overwritten: %#v", values["names"])
	}
	if values["info"] != "" {
		t.Errorf("info = %#v, want empty string", values["info"])
	}
	if missing := reg.Missing(values); len(missing) != 0 {
		t.Errorf("Missing after Fill = %v", missing)
	}
}

func TestRegistry_Missing(t *testing.T) {
	reg := MustNew(numeric("a", "count"), text("b", "names"))
	missing := reg.Missing(models.Values{"count": int64(1)})
	if len(missing) != 1 || missing[0] != "names" {
		t.Errorf("Missing = %v, want [names]", missing)
	}
}

func TestMustNew_PanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustNew(numeric("a", "x"), numeric("a", "y"))
}
