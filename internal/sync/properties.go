package sync

import (
	"strings"
	"time"
	"unicode/utf8"

	"kofnote/internal/records"
	"kofnote/internal/workspace"
)

const maxRichTextRunes = 1800

// findTitlePropertyName returns the name of the database's title-typed
// property, which every Notion-like database has exactly one of.
func findTitlePropertyName(schema map[string]any) (string, bool) {
	for name, raw := range schema {
		if propType(raw) == "title" {
			return name, true
		}
	}
	return "", false
}

// findPropertyByCandidates looks up a schema property by a list of
// candidate display names, case-insensitively, in priority order.
func findPropertyByCandidates(schema map[string]any, candidates []string) (name, kind string, ok bool) {
	for _, candidate := range candidates {
		for propName, raw := range schema {
			if strings.EqualFold(propName, candidate) {
				return propName, propType(raw), true
			}
		}
	}
	return "", "", false
}

func propType(raw any) string {
	m, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	t, _ := m["type"].(string)
	return t
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// buildProperties constructs the Notion page-property payload for a record,
// schema-driven: only property keys whose remote type is recognized are
// set, matching the recognized-type allowlist (title/select/multi_select/
// rich_text/date).
func buildProperties(schema map[string]any, titleProperty string, r records.Record) map[string]any {
	props := map[string]any{
		titleProperty: map[string]any{
			"title": []map[string]any{richTextRun(truncateRunes(r.Title, maxRichTextRunes))},
		},
	}

	if name, kind, ok := findPropertyByCandidates(schema, []string{"Type", "Record Type"}); ok {
		switch kind {
		case "select":
			props[name] = map[string]any{"select": map[string]any{"name": r.Type}}
		case "rich_text":
			props[name] = map[string]any{"rich_text": []map[string]any{richTextRun(r.Type)}}
		}
	}

	if name, kind, ok := findPropertyByCandidates(schema, []string{"Tags", "Tag"}); ok {
		switch kind {
		case "multi_select":
			var options []map[string]any
			for _, tag := range r.Tags {
				tag = strings.TrimSpace(tag)
				if tag == "" {
					continue
				}
				options = append(options, map[string]any{"name": tag})
			}
			props[name] = map[string]any{"multi_select": options}
		case "rich_text":
			props[name] = map[string]any{"rich_text": []map[string]any{richTextRun(strings.Join(r.Tags, ", "))}}
		}
	}

	if name, kind, ok := findPropertyByCandidates(schema, []string{"Date"}); ok && kind == "date" {
		start := r.Date
		if start == "" {
			start = extractDay(r.CreatedAt)
		}
		if start == "" {
			start = time.Now().UTC().Format("2006-01-02")
		}
		props[name] = map[string]any{"date": map[string]any{"start": start}}
	}

	if name, kind, ok := findPropertyByCandidates(schema, []string{"Created At", "Created", "Timestamp"}); ok {
		switch kind {
		case "date":
			props[name] = map[string]any{"date": map[string]any{"start": r.CreatedAt}}
		case "rich_text":
			props[name] = map[string]any{"rich_text": []map[string]any{richTextRun(r.CreatedAt)}}
		}
	}

	return props
}

func extractDay(createdAt string) string {
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		return t.Format("2006-01-02")
	}
	if len(createdAt) >= 10 {
		return createdAt[:10]
	}
	return ""
}

func richTextRun(content string) map[string]any {
	return map[string]any{"type": "text", "text": map[string]any{"content": content}}
}

// buildChildren renders Final Body and Source Text as heading+paragraph
// block pairs, each truncated to maxRichTextRunes code points.
func buildChildren(r records.Record) []map[string]any {
	finalBody := r.FinalBody
	if strings.TrimSpace(finalBody) == "" {
		finalBody = "(empty)"
	}
	sourceText := r.SourceText
	if strings.TrimSpace(sourceText) == "" {
		sourceText = "(empty)"
	}

	return []map[string]any{
		heading2Block("Final Body"),
		paragraphBlock(truncateRunes(finalBody, maxRichTextRunes)),
		heading2Block("Source Text"),
		paragraphBlock(truncateRunes(sourceText, maxRichTextRunes)),
	}
}

func heading2Block(text string) map[string]any {
	return map[string]any{
		"object":    "block",
		"type":      "heading_2",
		"heading_2": map[string]any{"rich_text": []map[string]any{richTextRun(text)}},
	}
}

func paragraphBlock(text string) map[string]any {
	return map[string]any{
		"object":    "block",
		"type":      "paragraph",
		"paragraph": map[string]any{"rich_text": []map[string]any{richTextRun(text)}},
	}
}

// plainTextFromRichText concatenates a Notion rich_text array's plain_text
// (falling back to text.content), the inverse of richTextRun.
func plainTextFromRichText(raw any) string {
	items, ok := raw.([]any)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m["plain_text"].(string); ok && s != "" {
			b.WriteString(s)
			continue
		}
		if text, ok := m["text"].(map[string]any); ok {
			if s, ok := text["content"].(string); ok {
				b.WriteString(s)
			}
		}
	}
	return b.String()
}

func findPageProperty(properties map[string]any, candidates []string) (map[string]any, bool) {
	for _, candidate := range candidates {
		for name, raw := range properties {
			if strings.EqualFold(name, candidate) {
				m, ok := raw.(map[string]any)
				return m, ok
			}
		}
	}
	return nil, false
}

func extractTitle(properties map[string]any) string {
	for _, raw := range properties {
		m, ok := raw.(map[string]any)
		if !ok || propType(m) != "title" {
			continue
		}
		text := plainTextFromRichText(m["title"])
		if strings.TrimSpace(text) != "" {
			return text
		}
	}
	return "Untitled"
}

func extractRecordType(properties map[string]any) string {
	prop, ok := findPageProperty(properties, []string{"Type", "Record Type"})
	if !ok {
		return "worklog"
	}
	var value string
	switch propType(prop) {
	case "select":
		if sel, ok := prop["select"].(map[string]any); ok {
			value, _ = sel["name"].(string)
		}
	case "rich_text":
		value = plainTextFromRichText(prop["rich_text"])
	case "title":
		value = plainTextFromRichText(prop["title"])
	}
	if strings.TrimSpace(value) == "" {
		return "worklog"
	}
	return workspace.CanonicalType(value)
}

func extractTags(properties map[string]any) []string {
	prop, ok := findPageProperty(properties, []string{"Tags", "Tag"})
	if !ok {
		return nil
	}
	switch propType(prop) {
	case "multi_select":
		items, _ := prop["multi_select"].([]any)
		var tags []string
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := m["name"].(string); ok {
				tags = append(tags, name)
			}
		}
		return tags
	case "rich_text":
		text := plainTextFromRichText(prop["rich_text"])
		var tags []string
		for _, part := range strings.Split(text, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				tags = append(tags, part)
			}
		}
		return tags
	case "select":
		if sel, ok := prop["select"].(map[string]any); ok {
			if name, ok := sel["name"].(string); ok && strings.TrimSpace(name) != "" {
				return []string{strings.TrimSpace(name)}
			}
		}
	}
	return nil
}

func extractDate(properties map[string]any) string {
	prop, ok := findPageProperty(properties, []string{"Date"})
	if !ok {
		return ""
	}
	switch propType(prop) {
	case "date":
		if d, ok := prop["date"].(map[string]any); ok {
			if start, ok := d["start"].(string); ok {
				return start
			}
		}
	case "rich_text":
		return strings.TrimSpace(plainTextFromRichText(prop["rich_text"]))
	}
	return ""
}

func extractCreatedAt(page map[string]any, properties map[string]any) string {
	if prop, ok := findPageProperty(properties, []string{"Created At", "Created", "Timestamp"}); ok {
		switch propType(prop) {
		case "date":
			if d, ok := prop["date"].(map[string]any); ok {
				if start, ok := d["start"].(string); ok && start != "" {
					return start
				}
			}
		case "rich_text":
			if text := strings.TrimSpace(plainTextFromRichText(prop["rich_text"])); text != "" {
				return text
			}
		}
	}
	if v, ok := page["created_time"].(string); ok && v != "" {
		return v
	}
	if v, ok := page["last_edited_time"].(string); ok && v != "" {
		return v
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// extractContentSections collapses a page's block list into (final_body,
// source_text) by scanning for the literal "Final Body"/"Source Text"
// heading markers this package's own buildChildren writes. Text preceding
// either heading accumulates into a fallback buffer used as final_body
// when no "Final Body" heading is ever seen.
func extractContentSections(blocks []map[string]any) (finalBody, sourceText string) {
	var finalLines, sourceLines, fallbackLines []string
	section := ""

	for _, block := range blocks {
		blockType, _ := block["type"].(string)
		text := strings.TrimSpace(extractBlockText(block, blockType))
		if text == "" {
			continue
		}

		if strings.HasPrefix(blockType, "heading_") {
			if strings.EqualFold(text, "Final Body") {
				section = "final"
				continue
			}
			if strings.EqualFold(text, "Source Text") {
				section = "source"
				continue
			}
		}

		switch section {
		case "final":
			finalLines = append(finalLines, text)
		case "source":
			sourceLines = append(sourceLines, text)
		default:
			fallbackLines = append(fallbackLines, text)
		}
	}

	if len(finalLines) > 0 {
		finalBody = strings.Join(finalLines, "\n\n")
	} else {
		finalBody = strings.Join(fallbackLines, "\n\n")
	}
	sourceText = strings.Join(sourceLines, "\n\n")
	return finalBody, sourceText
}

func extractBlockText(block map[string]any, blockType string) string {
	section, ok := block[blockType].(map[string]any)
	if !ok {
		return ""
	}
	if richText, ok := section["rich_text"]; ok {
		return plainTextFromRichText(richText)
	}
	return ""
}

// remoteRecordFromPage assembles a RemoteRecord from a page's JSON object,
// optionally fetching and collapsing its block children.
func remoteRecordFromPage(page map[string]any, content func() ([]map[string]any, error), includeContent bool) (RemoteRecord, error) {
	pageID, _ := page["id"].(string)
	pageURL, _ := page["url"].(string)
	lastEdited, _ := page["last_edited_time"].(string)

	properties, _ := page["properties"].(map[string]any)

	remote := RemoteRecord{
		PageID:         pageID,
		PageURL:        pageURL,
		LastEditedTime: lastEdited,
		RecordType:     extractRecordType(properties),
		Title:          extractTitle(properties),
		CreatedAt:      extractCreatedAt(page, properties),
		Date:           extractDate(properties),
		Tags:           extractTags(properties),
	}

	if includeContent {
		blocks, err := content()
		if err != nil {
			return RemoteRecord{}, err
		}
		remote.FinalBody, remote.SourceText = extractContentSections(blocks)
	}
	return remote, nil
}
