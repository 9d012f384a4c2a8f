package journal

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter is the YAML header of a rendered journal entry. The canonical
// record stays in the JSONL log; the markdown form exists for human
// readers.
type frontMatter struct {
	TaskID       string   `yaml:"task_id"`
	Status       string   `yaml:"status"`
	Owner        string   `yaml:"owner,omitempty"`
	Contributors []string `yaml:"contributing_workers,omitempty"`
	LastSync     string   `yaml:"last_sync"`
	Parent       string   `yaml:"parent,omitempty"`
	CommitRef    string   `yaml:"commit_ref,omitempty"`
	Clearance    int      `yaml:"security_clearance"`
}

// RenderMarkdown renders the entry as a front-matter markdown document.
func RenderMarkdown(e Entry) (string, error) {
	fm := frontMatter{
		TaskID:       e.TaskID,
		Status:       e.Status,
		Owner:        e.Owner,
		Contributors: e.Contributors,
		LastSync:     e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		Parent:       e.Parent,
		CommitRef:    e.CommitRef,
		Clearance:    e.Clearance,
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("journal: render front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# Journal Entry: %s\n\n", e.TaskID)
	fmt.Fprintf(&b, "**Date:** %s\n", e.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Status:** %s\n\n", strings.ToUpper(e.Status))
	b.WriteString("## Summary\n\n")
	if e.Summary != "" {
		b.WriteString(e.Summary)
		b.WriteString("\n")
	} else {
		b.WriteString("None\n")
	}
	b.WriteString("\n## Contributing Workers\n\n")
	if len(e.Contributors) == 0 {
		b.WriteString("None\n")
	} else {
		for _, c := range e.Contributors {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String(), nil
}
