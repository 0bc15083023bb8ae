// Package lint validates Liquibase-style migration changelog files
// against this module's naming conventions, independent of whether the
// migration itself ever runs.
package lint

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var authorPattern = regexp.MustCompile(`^[-_ A-Za-z0-9]+$`)

// Violation reports one rule failure against one changeSet.
type Violation struct {
	File    string
	ChangeSetID string
	Rule    string
	Detail  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: changeSet %q: %s: %s", v.File, v.ChangeSetID, v.Rule, v.Detail)
}

type changeSet struct {
	ID              string `xml:"id,attr"`
	Author          string `xml:"author,attr"`
	LogicalFilePath string `xml:"logicalFilePath,attr"`
}

type changelog struct {
	XMLName    xml.Name    `xml:"databaseChangeLog"`
	ChangeSets []changeSet `xml:"changeSet"`
}

// File parses and lints a single changelog file.
func File(path string) ([]Violation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lint: reading %s: %w", path, err)
	}

	var doc changelog
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("lint: parsing %s: %w", path, err)
	}

	base := filepath.Base(path)
	var violations []Violation
	for _, cs := range doc.ChangeSets {
		violations = append(violations, checkChangeSet(base, cs)...)
	}
	return violations, nil
}

func checkChangeSet(fileName string, cs changeSet) []Violation {
	var out []Violation

	if cs.LogicalFilePath != fileName {
		out = append(out, Violation{
			File: fileName, ChangeSetID: cs.ID, Rule: "logicalFilePath",
			Detail: fmt.Sprintf("logicalFilePath %q must equal the file name %q", cs.LogicalFilePath, fileName),
		})
	}

	if strings.TrimSpace(cs.ID) == "" {
		out = append(out, Violation{
			File: fileName, ChangeSetID: cs.ID, Rule: "id",
			Detail: "id must not be empty",
		})
	}

	if strings.TrimSpace(cs.Author) == "" {
		out = append(out, Violation{
			File: fileName, ChangeSetID: cs.ID, Rule: "author",
			Detail: "author must not be empty",
		})
	} else if !authorPattern.MatchString(cs.Author) {
		out = append(out, Violation{
			File: fileName, ChangeSetID: cs.ID, Rule: "author",
			Detail: fmt.Sprintf("author %q must match %s", cs.Author, authorPattern.String()),
		})
	}

	if cs.ID != "" {
		idPrefix := nonLetterHyphenPrefix(cs.ID)
		filePrefix := nonLetterHyphenPrefix(fileName)
		if !strings.HasPrefix(filePrefix, idPrefix) {
			out = append(out, Violation{
				File: fileName, ChangeSetID: cs.ID, Rule: "id-prefix",
				Detail: fmt.Sprintf("id's leading prefix %q must be a prefix of the file name's leading prefix %q", idPrefix, filePrefix),
			})
		}
	}

	return out
}

// nonLetterHyphenPrefix returns the leading run of bytes that are
// neither ASCII letters nor hyphens, e.g. "001_" out of "001_create_users".
func nonLetterHyphenPrefix(s string) string {
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' {
			break
		}
		i++
	}
	return s[:i]
}
