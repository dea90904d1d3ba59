package classifier

import (
	"reflect"
	"testing"

	"complaints_backend/internal/registry"
)

func testDepartments() []registry.Department {
	return []registry.Department{
		{ID: "transport", Name: "Транспорт и дороги", Keywords: []string{
			"дорога", "транспорт", "автобус", "светофор", "яма", "тротуар", "остановка",
		}},
		{ID: "construction", Name: "Строительство", Keywords: []string{
			"строительство", "ремонт", "здание", "крыша", "фасад",
		}},
		{ID: "ecology", Name: "Экология", Keywords: []string{
			"мусор", "отходы", "воздух", "дерево", "парк", "шум",
		}},
	}
}

func TestClassify_SingleDepartmentFullConfidence(t *testing.T) {
	res := Classify("сломан светофор на перекрестке", testDepartments())

	if res.DepartmentID != "transport" {
		t.Fatalf("expected transport, got %s", res.DepartmentID)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %f", res.Confidence)
	}
	if !reflect.DeepEqual(res.MatchedKeywords, []string{"светофор"}) {
		t.Fatalf("expected matched keywords [светофор], got %v", res.MatchedKeywords)
	}
	if !res.AutoRoutable() {
		t.Fatal("confidence 1.0 should auto-route")
	}
}

func TestClassify_NoMatchReturnsUnclassified(t *testing.T) {
	res := Classify("хочу выразить благодарность", testDepartments())

	if res.DepartmentID != registry.UnclassifiedID {
		t.Fatalf("expected unclassified, got %s", res.DepartmentID)
	}
	if res.Confidence != 0.0 {
		t.Fatalf("expected confidence 0.0, got %f", res.Confidence)
	}
	if len(res.MatchedKeywords) != 0 {
		t.Fatalf("expected no matched keywords, got %v", res.MatchedKeywords)
	}
}

func TestClassify_ConfidenceIsWinnerShareOfTotal(t *testing.T) {
	// transport matches 2 keywords (дорога, яма), ecology 1 (мусор):
	// confidence = 2/3.
	res := Classify("дорога вся в ямах и кругом мусор", testDepartments())

	if res.DepartmentID != "transport" {
		t.Fatalf("expected transport, got %s", res.DepartmentID)
	}
	want := 2.0 / 3.0
	if res.Confidence != want {
		t.Fatalf("expected confidence %f, got %f", want, res.Confidence)
	}
	if res.AutoRoutable() != true {
		t.Fatal("2/3 should auto-route")
	}
}

func TestClassify_ExactThresholdAutoRoutes(t *testing.T) {
	// One keyword each for transport and ecology: winner share is exactly 0.5.
	res := Classify("автобус завален мусором", testDepartments())

	if res.Confidence != 0.5 {
		t.Fatalf("expected confidence 0.5, got %f", res.Confidence)
	}
	if !res.AutoRoutable() {
		t.Fatal("exactly 0.5 must auto-route (inclusive boundary)")
	}
}

func TestClassify_TieBreaksOnRegistryOrder(t *testing.T) {
	departments := []registry.Department{
		{ID: "second", Keywords: []string{"шум"}},
		{ID: "first", Keywords: []string{"шум"}},
	}
	// Both score 1; the department listed first wins.
	res := Classify("постоянный шум ночью", departments)
	if res.DepartmentID != "second" {
		t.Fatalf("expected first-listed department to win the tie, got %s", res.DepartmentID)
	}
}

func TestClassify_CaseFolding(t *testing.T) {
	res := Classify("СВЕТОФОР НЕ РАБОТАЕТ", testDepartments())
	if res.DepartmentID != "transport" {
		t.Fatalf("expected transport, got %s", res.DepartmentID)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	departments := testDepartments()
	text := "яма на дороге, мусор у остановки, ремонт фасада"

	first := Classify(text, departments)
	for i := 0; i < 10; i++ {
		again := Classify(text, departments)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("classification not deterministic: %v vs %v", first, again)
		}
	}
}

func TestClassify_ConfidenceBounds(t *testing.T) {
	texts := []string{
		"",
		"мусор",
		"дорога автобус светофор яма мусор ремонт здание",
		"случайный текст без ключевых слов",
	}
	for _, text := range texts {
		res := Classify(text, testDepartments())
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Fatalf("confidence out of range for %q: %f", text, res.Confidence)
		}
	}
}
