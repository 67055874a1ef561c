package spec

import (
	"fmt"
	"strings"
	"time"
)

// Changelog is one dated, authored release note block.
type Changelog struct {
	Date     time.Time
	Author   string
	Email    string
	Messages []string
}

func NewChangelog(date time.Time, author, email string, messages ...string) *Changelog {
	return &Changelog{Date: date, Author: author, Email: email, Messages: messages}
}

func (c *Changelog) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "* %s %d %s <%s>\n", c.Date.Format("Mon Jan"), c.Date.Year(), c.Author, c.Email)
	for _, m := range c.Messages {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	return b.String()
}
