package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// Fixture is the YAML description of an account's state. A nil section
// leaves that source unconfigured.
//
//	mail:
//	  messages:
//	    - id: m1
//	      subject: "Your account will be suspended - verify immediately"
//	      from: "security@examp1e.com"
//	      unread: true
//	storage:
//	  files:
//	    - id: f1
//	      name: budget.xlsx
//	      mime_type: application/vnd.google-apps.spreadsheet
//	      permissions:
//	        - {id: anyoneWithLink, type: anyone, role: writer}
type Fixture struct {
	Credentials connector.Credentials `yaml:"credentials"`
	Mail        *MailFixture          `yaml:"mail"`
	Media       *MediaFixture         `yaml:"media"`
	Storage     *StorageFixture       `yaml:"storage"`
	Calendar    *CalendarFixture      `yaml:"calendar"`
	Identity    *models.Identity      `yaml:"identity"`
}

type MailFixture struct {
	Messages   []models.Message           `yaml:"messages"`
	Forwarding []models.ForwardingAddress `yaml:"forwarding"`
	Filters    []models.MailFilter        `yaml:"filters"`
}

type MediaFixture struct {
	Videos []models.Video `yaml:"videos"`
}

// FileFixture is a file plus its permissions. Shared is derived from the
// permission list when not set explicitly.
type FileFixture struct {
	models.File `yaml:",inline"`
	Permissions []models.Permission `yaml:"permissions"`
}

type StorageFixture struct {
	Files []FileFixture `yaml:"files"`
}

// CalendarFixture lists calendars with their ACLs. Forbidden names calendar
// IDs whose ACL the account may not read.
type CalendarFixture struct {
	Calendars []CalendarEntry `yaml:"calendars"`
	Forbidden []string        `yaml:"forbidden"`
}

type CalendarEntry struct {
	models.Calendar `yaml:",inline"`
	ACL             []models.ACLRule `yaml:"acl"`
}

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture %q: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture parses YAML fixture bytes.
func ParseFixture(data []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}
