package scaffold

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Generator emits scaffold file trees for a target language
type Generator struct {
	language string
}

// NewGenerator creates a generator for "python" or "typescript"
func NewGenerator(language string) *Generator {
	return &Generator{language: strings.ToLower(language)}
}

var jsonBlockRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ParseLLMOutput extracts a scaffold definition from model output. The
// definition is expected inside a fenced json block; absent one, an
// empty scaffold with a placeholder domain name is returned.
func ParseLLMOutput(out string) (Scaffold, error) {
	m := jsonBlockRe.FindStringSubmatch(out)
	if m == nil {
		return Scaffold{DomainName: "generated_domain"}, nil
	}

	var sc Scaffold
	if err := json.Unmarshal([]byte(m[1]), &sc); err != nil {
		return Scaffold{}, fmt.Errorf("parse scaffold definition: %w", err)
	}
	if sc.DomainName == "" {
		sc.DomainName = "domain"
	}
	return sc, nil
}

// Generate returns a mapping from relative file path to file content
func (g *Generator) Generate(sc Scaffold) (map[string]string, error) {
	switch g.language {
	case "python":
		return g.generatePython(sc), nil
	case "typescript":
		return g.generateTypeScript(sc), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", g.language)
	}
}

func (g *Generator) generatePython(sc Scaffold) map[string]string {
	files := map[string]string{}
	base := sc.DomainName

	files[base+"/__init__.py"] = fmt.Sprintf("\"\"\"%s domain module.\"\"\"\n", sc.DomainName)

	if len(sc.Entities) > 0 {
		files[base+"/entities/__init__.py"] = ""
		for _, e := range sc.Entities {
			files[fmt.Sprintf("%s/entities/%s.py", base, strings.ToLower(e.Name))] = pythonEntity(e)
		}
	}
	if len(sc.ValueObjects) > 0 {
		files[base+"/value_objects/__init__.py"] = ""
		for _, vo := range sc.ValueObjects {
			files[fmt.Sprintf("%s/value_objects/%s.py", base, strings.ToLower(vo.Name))] = pythonValueObject(vo)
		}
	}
	if len(sc.Repositories) > 0 {
		files[base+"/repositories/__init__.py"] = ""
		for _, r := range sc.Repositories {
			files[fmt.Sprintf("%s/repositories/%s.py", base, strings.ToLower(r.Name))] = pythonRepository(r)
		}
	}
	if len(sc.Services) > 0 {
		files[base+"/services/__init__.py"] = ""
		for _, s := range sc.Services {
			files[fmt.Sprintf("%s/services/%s.py", base, strings.ToLower(s.Name))] = pythonService(s)
		}
	}

	return files
}

func pythonFieldLines(fields []Field) []string {
	var lines []string
	for _, f := range fields {
		fieldType := f.Type
		if !f.Required {
			fieldType = fmt.Sprintf("Optional[%s]", fieldType)
		}
		switch {
		case f.Default != "":
			lines = append(lines, fmt.Sprintf("    %s: %s = %s", f.Name, fieldType, f.Default))
		case !f.Required:
			lines = append(lines, fmt.Sprintf("    %s: %s = None", f.Name, fieldType))
		default:
			lines = append(lines, fmt.Sprintf("    %s: %s", f.Name, fieldType))
		}
	}
	return lines
}

func pythonEntity(e Entity) string {
	lines := []string{
		`"""Entity definition."""`,
		"",
		"from dataclasses import dataclass, field",
		"from typing import Optional",
		"from uuid import UUID, uuid4",
		"",
		"",
		"@dataclass",
		fmt.Sprintf("class %s:", e.Name),
		fmt.Sprintf(`    """%s entity."""`, e.Name),
		"",
		"    id: UUID = field(default_factory=uuid4)",
	}
	lines = append(lines, pythonFieldLines(e.Fields)...)

	if len(e.Methods) > 0 {
		lines = append(lines, "")
		for _, m := range e.Methods {
			lines = append(lines,
				fmt.Sprintf("    def %s(self):", m),
				fmt.Sprintf(`        """Implement %s."""`, m),
				"        pass",
				"")
		}
	}
	return strings.Join(lines, "\n")
}

func pythonValueObject(vo ValueObject) string {
	lines := []string{
		`"""Value object definition."""`,
		"",
		"from dataclasses import dataclass",
		"from typing import Optional",
		"",
		"",
		"@dataclass(frozen=True)",
		fmt.Sprintf("class %s:", vo.Name),
		fmt.Sprintf(`    """%s value object."""`, vo.Name),
		"",
	}
	lines = append(lines, pythonFieldLines(vo.Fields)...)
	return strings.Join(lines, "\n")
}

func pythonRepository(r Repository) string {
	lines := []string{
		`"""Repository definition."""`,
		"",
		"from abc import ABC, abstractmethod",
		"from typing import List, Optional",
		"from uuid import UUID",
		fmt.Sprintf("from ..entities.%s import %s", strings.ToLower(r.Entity), r.Entity),
		"",
		"",
		fmt.Sprintf("class %s(ABC):", r.Name),
		fmt.Sprintf(`    """%s repository interface."""`, r.Name),
		"",
		"    @abstractmethod",
		fmt.Sprintf("    async def get_by_id(self, id: UUID) -> Optional[%s]:", r.Entity),
		fmt.Sprintf(`        """Get %s by ID."""`, r.Entity),
		"        pass",
		"",
		"    @abstractmethod",
		fmt.Sprintf("    async def get_all(self) -> List[%s]:", r.Entity),
		fmt.Sprintf(`        """Get all %s instances."""`, r.Entity),
		"        pass",
		"",
		"    @abstractmethod",
		fmt.Sprintf("    async def save(self, entity: %s) -> %s:", r.Entity, r.Entity),
		fmt.Sprintf(`        """Save %s."""`, r.Entity),
		"        pass",
		"",
		"    @abstractmethod",
		"    async def delete(self, id: UUID) -> bool:",
		fmt.Sprintf(`        """Delete %s by ID."""`, r.Entity),
		"        pass",
	}

	if len(r.Methods) > 0 {
		lines = append(lines, "")
		for _, m := range r.Methods {
			lines = append(lines,
				"    @abstractmethod",
				fmt.Sprintf("    async def %s(self):", m),
				fmt.Sprintf(`        """Implement %s."""`, m),
				"        pass",
				"")
		}
	}
	return strings.Join(lines, "\n")
}

func pythonService(s Service) string {
	lines := []string{
		`"""Domain service definition."""`,
		"",
		"from typing import Any",
		"",
		"",
		fmt.Sprintf("class %s:", s.Name),
		fmt.Sprintf(`    """%s domain service."""`, s.Name),
		"",
		"    def __init__(self):",
		fmt.Sprintf(`        """Initialize %s."""`, s.Name),
		"        pass",
	}

	if len(s.Methods) > 0 {
		lines = append(lines, "")
		for _, m := range s.Methods {
			lines = append(lines,
				fmt.Sprintf("    async def %s(self, *args, **kwargs) -> Any:", m),
				fmt.Sprintf(`        """Implement %s."""`, m),
				"        pass",
				"")
		}
	}
	return strings.Join(lines, "\n")
}

func (g *Generator) generateTypeScript(sc Scaffold) map[string]string {
	files := map[string]string{}
	base := sc.DomainName

	var index []string
	for _, e := range sc.Entities {
		path := fmt.Sprintf("%s/entities/%s.ts", base, strings.ToLower(e.Name))
		files[path] = typescriptEntity(e)
		index = append(index, fmt.Sprintf("export * from './entities/%s';", strings.ToLower(e.Name)))
	}
	for _, vo := range sc.ValueObjects {
		path := fmt.Sprintf("%s/valueObjects/%s.ts", base, strings.ToLower(vo.Name))
		files[path] = typescriptValueObject(vo)
		index = append(index, fmt.Sprintf("export * from './valueObjects/%s';", strings.ToLower(vo.Name)))
	}

	files[base+"/index.ts"] = fmt.Sprintf("// %s module\n%s\n", sc.DomainName, strings.Join(index, "\n"))
	return files
}

func tsFieldLines(fields []Field) []string {
	var lines []string
	for _, f := range fields {
		optional := ""
		if !f.Required {
			optional = "?"
		}
		lines = append(lines, fmt.Sprintf("  %s%s: %s;", f.Name, optional, f.Type))
	}
	return lines
}

func typescriptEntity(e Entity) string {
	lines := []string{
		fmt.Sprintf("export interface %s {", e.Name),
		"  id: string;",
	}
	lines = append(lines, tsFieldLines(e.Fields)...)
	lines = append(lines, "}")
	return strings.Join(lines, "\n") + "\n"
}

func typescriptValueObject(vo ValueObject) string {
	lines := []string{
		fmt.Sprintf("export interface %s {", vo.Name),
	}
	lines = append(lines, tsFieldLines(vo.Fields)...)
	lines = append(lines, "}")
	return strings.Join(lines, "\n") + "\n"
}
