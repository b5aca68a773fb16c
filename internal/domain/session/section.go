package session

import "github.com/crm/backend/internal/domain/shared"

// SectionName identifies one area of the admin UI with its own data lifecycle
type SectionName string

const (
	SectionCustomers        SectionName = "customers"
	SectionProjects         SectionName = "projects"
	SectionPlanning         SectionName = "planning"
	SectionTimeRegistration SectionName = "timeRegistration"
	SectionReceipts         SectionName = "receipts"
	SectionQuotes           SectionName = "quotes"
	SectionPersonnel        SectionName = "personnel"
	SectionUsers            SectionName = "users"
	SectionSettings         SectionName = "settings"
	SectionEmail            SectionName = "email"
	SectionChat             SectionName = "chat"
)

// AllSections lists every section in display order
func AllSections() []SectionName {
	return []SectionName{
		SectionCustomers,
		SectionProjects,
		SectionPlanning,
		SectionTimeRegistration,
		SectionReceipts,
		SectionQuotes,
		SectionPersonnel,
		SectionUsers,
		SectionSettings,
		SectionEmail,
		SectionChat,
	}
}

// Valid reports whether s is one of the known sections
func (s SectionName) Valid() bool {
	switch s {
	case SectionCustomers, SectionProjects, SectionPlanning, SectionTimeRegistration,
		SectionReceipts, SectionQuotes, SectionPersonnel, SectionUsers,
		SectionSettings, SectionEmail, SectionChat:
		return true
	default:
		return false
	}
}

// String returns the section name
func (s SectionName) String() string {
	return string(s)
}

// ParseSection converts external input into a SectionName
func ParseSection(name string) (SectionName, error) {
	s := SectionName(name)
	if !s.Valid() {
		return "", shared.NewDomainError("INVALID_SECTION", "Unknown section: "+name)
	}
	return s, nil
}
