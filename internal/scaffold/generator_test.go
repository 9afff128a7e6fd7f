package scaffold

import (
	"strings"
	"testing"
)

const sampleOutput = "Here is your domain model:\n" +
	"```json\n" +
	`{
  "domain_name": "billing",
  "entities": [
    {"name": "Invoice", "fields": [
      {"name": "amount", "type": "float", "required": true},
      {"name": "note", "type": "str", "required": false}
    ], "methods": ["finalize"]}
  ],
  "value_objects": [
    {"name": "Money", "fields": [{"name": "currency", "type": "str", "required": true}]}
  ],
  "repositories": [
    {"name": "InvoiceRepository", "entity": "Invoice", "methods": ["find_overdue"]}
  ],
  "services": [
    {"name": "BillingService", "methods": ["charge"]}
  ]
}` + "\n```\nLet me know if you need changes."

func TestParseLLMOutput(t *testing.T) {
	sc, err := ParseLLMOutput(sampleOutput)
	if err != nil {
		t.Fatal(err)
	}
	if sc.DomainName != "billing" {
		t.Errorf("DomainName = %q, want billing", sc.DomainName)
	}
	if len(sc.Entities) != 1 || sc.Entities[0].Name != "Invoice" {
		t.Errorf("Entities = %v, want one Invoice", sc.Entities)
	}
	if len(sc.Repositories) != 1 || sc.Repositories[0].Entity != "Invoice" {
		t.Errorf("Repositories = %v", sc.Repositories)
	}
}

func TestParseLLMOutputNoBlock(t *testing.T) {
	sc, err := ParseLLMOutput("sorry, I could not produce a model")
	if err != nil {
		t.Fatal(err)
	}
	if sc.DomainName != "generated_domain" {
		t.Errorf("DomainName = %q, want placeholder", sc.DomainName)
	}
}

func TestParseLLMOutputInvalidJSON(t *testing.T) {
	if _, err := ParseLLMOutput("```json\n{broken\n```"); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestGeneratePython(t *testing.T) {
	sc, err := ParseLLMOutput(sampleOutput)
	if err != nil {
		t.Fatal(err)
	}

	files, err := NewGenerator("python").Generate(sc)
	if err != nil {
		t.Fatal(err)
	}

	entity, ok := files["billing/entities/invoice.py"]
	if !ok {
		t.Fatalf("entity file missing, got files: %v", fileNames(files))
	}
	for _, want := range []string{"class Invoice:", "amount: float", "note: Optional[str] = None", "def finalize(self):"} {
		if !strings.Contains(entity, want) {
			t.Errorf("entity file missing %q:\n%s", want, entity)
		}
	}

	repo, ok := files["billing/repositories/invoicerepository.py"]
	if !ok {
		t.Fatalf("repository file missing, got files: %v", fileNames(files))
	}
	for _, want := range []string{"class InvoiceRepository(ABC):", "async def get_by_id", "async def find_overdue(self):"} {
		if !strings.Contains(repo, want) {
			t.Errorf("repository file missing %q", want)
		}
	}

	if _, ok := files["billing/__init__.py"]; !ok {
		t.Error("package init file missing")
	}
	if _, ok := files["billing/services/billingservice.py"]; !ok {
		t.Error("service file missing")
	}
}

func TestGenerateTypeScript(t *testing.T) {
	sc, err := ParseLLMOutput(sampleOutput)
	if err != nil {
		t.Fatal(err)
	}

	files, err := NewGenerator("typescript").Generate(sc)
	if err != nil {
		t.Fatal(err)
	}

	entity, ok := files["billing/entities/invoice.ts"]
	if !ok {
		t.Fatalf("entity file missing, got files: %v", fileNames(files))
	}
	for _, want := range []string{"export interface Invoice {", "id: string;", "amount: float;", "note?: str;"} {
		if !strings.Contains(entity, want) {
			t.Errorf("entity file missing %q:\n%s", want, entity)
		}
	}

	index, ok := files["billing/index.ts"]
	if !ok {
		t.Fatal("index file missing")
	}
	if !strings.Contains(index, "export * from './entities/invoice';") {
		t.Errorf("index missing entity export:\n%s", index)
	}
}

func TestGenerateUnsupportedLanguage(t *testing.T) {
	if _, err := NewGenerator("cobol").Generate(Scaffold{DomainName: "x"}); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func fileNames(files map[string]string) []string {
	var names []string
	for name := range files {
		names = append(names, name)
	}
	return names
}
