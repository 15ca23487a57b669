package services

import (
	"fmt"
	"strings"
)

// BuildComment renders the tracker comment for a submission. Sections come
// in a fixed order and a section with no data is left out entirely.
func BuildComment(in ReportInput) string {
	lines := []string{fmt.Sprintf("🔹 Новый отчёт от пользователя %s:", in.Username)}

	counters := []struct {
		label string
		value *int
	}{
		{"Поддержано программ", in.ProgramsSupported},
		{"Проектов в программе", in.ProjectsInProgram},
		{"Принято новых учёных", in.NewScientistsEmployed},
		{"Публикаций", in.PublicationsCount},
		{"Образовательных программ", in.ProgramsCount},
		{"Мероприятий", in.EventsCount},
	}
	for _, c := range counters {
		if c.value != nil {
			lines = append(lines, fmt.Sprintf("- %s: %d", c.label, *c.value))
		}
	}
	if in.Department != "" {
		lines = append(lines, "- Подразделение: "+in.Department)
	}

	if pubs := nonEmptyPublications(in.Publications); len(pubs) > 0 {
		lines = append(lines, "\n📚 Публикации:")
		for _, p := range pubs {
			lines = append(lines, fmt.Sprintf("  • %s (DOI: %s) – %s", p.Title, p.DOI, p.Relation))
		}
	}

	if progs := nonEmptyPrograms(in.Programs); len(progs) > 0 {
		lines = append(lines, "\n🎓 Образовательные программы:")
		for _, p := range progs {
			lines = append(lines, fmt.Sprintf("  • %s – %s – %s", p.Name, p.Kind, p.Priority))
		}
	}

	if events := nonEmptyEvents(in.Events); len(events) > 0 {
		lines = append(lines, "\n📅 Мероприятия:")
		for _, e := range events {
			lines = append(lines, fmt.Sprintf("  • %s: %s", e.Type, e.Topic))
		}
	}

	text := strings.Join(lines, "\n")
	if in.Description != "" {
		text += "\n- Описание: " + in.Description
	}
	return text
}

// blank form rows carry no data

func nonEmptyPublications(in []Publication) []Publication {
	var out []Publication
	for _, p := range in {
		if p.Title != "" || p.DOI != "" || p.Relation != "" {
			out = append(out, p)
		}
	}
	return out
}

func nonEmptyPrograms(in []Program) []Program {
	var out []Program
	for _, p := range in {
		if p.Name != "" || p.Kind != "" || p.Priority != "" {
			out = append(out, p)
		}
	}
	return out
}

func nonEmptyEvents(in []Event) []Event {
	var out []Event
	for _, e := range in {
		if e.Type != "" || e.Topic != "" {
			out = append(out, e)
		}
	}
	return out
}
