package config

import (
	"fmt"
	"io"
	"strings"
)

// WriteReview prints the settings a user should double check before a run.
func (s *Settings) WriteReview(w io.Writer, contactsPath string) error {
	var b strings.Builder

	b.WriteString("   Here are settings for you to double check:\n\n")
	fmt.Fprintf(&b, "   Channel: %s\n", s.Channel.Type)
	fmt.Fprintf(&b, "   Username: %s\n", s.SMTP.Username)
	fmt.Fprintf(&b, "   SMTP Server & Port: %s:%d\n\n", s.SMTP.Server, s.SMTP.Port)

	fmt.Fprintf(&b, "   %d Email IDs: [%s]\n", len(s.Emails.IDs), strings.Join(s.Emails.IDs, ", "))

	writeups := make([]string, len(s.Emails.Writeups))
	for i, wr := range s.Emails.Writeups {
		subject := ""
		if i < len(s.Emails.Subjects) {
			subject = s.Emails.Subjects[i]
		}
		writeups[i] = subject + ": " + wr
	}
	fmt.Fprintf(&b, "   %d Email Write-ups: [%s]\n\n", len(writeups), strings.Join(writeups, ", "))

	placeholders := make([]string, len(s.CSV.Placeholders))
	for i, p := range s.CSV.Placeholders {
		placeholders[i] = "{" + p + "}"
	}
	fmt.Fprintf(&b, "   %d Placeholders: [%s]\n", len(placeholders), strings.Join(placeholders, ", "))
	fmt.Fprintf(&b, "   Filter based on Write-ups? %s\n", yesNo(s.CSV.SegregateByWriteups))
	fmt.Fprintf(&b, "   Filter based on Email IDs? %s\n", yesNo(s.CSV.SegregateByIDs))
	fmt.Fprintf(&b, "   Output .CSV folder: %s\n", s.CSV.OutputFolder)
	if contactsPath != "" {
		fmt.Fprintf(&b, "   Contacts file: %s\n", contactsPath)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
