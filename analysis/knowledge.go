// Package analysis answers the editor's questions about a unit file:
// diagnostics for the whole text, and completion and hover at a position.
//
// Every function takes the full current text and re-derives structure from it
// through package unitfile. Nothing is retained between calls.
package analysis

// Source tags every diagnostic this package produces.
const Source = "systemd-lsp"

type candidate struct {
	name   string
	detail string
}

// knownSections lists the section names offered as completions, in the
// order the editor shows them.
var knownSections = []candidate{
	{"Unit", "Unit configuration section"},
	{"Service", "Service configuration section"},
	{"Install", "Install configuration section"},
	{"Socket", "Socket configuration section"},
	{"Mount", "Mount configuration section"},
	{"Timer", "Timer configuration section"},
}

// sectionKeys are the key completions per section. Mount has none, so the
// completion fallback applies inside it.
var sectionKeys = map[string][]candidate{
	"Unit": {
		{"Description", "Unit description"},
		{"Documentation", "Documentation URL"},
		{"Requires", "Strong dependencies"},
		{"Wants", "Weak dependencies"},
		{"After", "Start order dependency"},
		{"Before", "Start order dependency"},
		{"Conflicts", "Conflicting units"},
	},
	"Service": {
		{"Type", "Service type"},
		{"ExecStart", "Start command"},
		{"ExecStop", "Stop command"},
		{"Restart", "Restart policy"},
		{"RestartSec", "Restart interval"},
		{"User", "Run as user"},
		{"Group", "Run as group"},
		{"WorkingDirectory", "Working directory"},
	},
	"Install": {
		{"WantedBy", "Wanted by targets"},
		{"RequiredBy", "Required by targets"},
		{"Alias", "Unit alias"},
	},
	"Socket": {
		{"ListenStream", "Listen on TCP port"},
		{"ListenDatagram", "Listen on UDP port"},
		{"Accept", "Accept connections"},
	},
	"Timer": {
		{"OnBootSec", "Delay after boot"},
		{"OnUnitActiveSec", "Delay after unit activation"},
		{"OnCalendar", "Calendar-based trigger"},
	},
}

var sectionDocs = map[string]string{
	"Unit":    "The Unit section contains basic information about the unit, such as description and dependencies.",
	"Service": "The Service section contains service configuration, such as start commands and restart policies.",
	"Install": "The Install section contains installation information, such as which targets want this unit.",
	"Socket":  "The Socket section contains socket configuration, such as listening addresses and ports.",
	"Mount":   "The Mount section contains mount point configuration.",
	"Timer":   "The Timer section contains timer configuration, used for scheduled service activation.",
}

var keyDocs = map[string]string{
	"Description": "Describes the unit's function and purpose.",
	"After":       "Defines start order, this unit will start after the specified units.",
	"Before":      "Defines start order, this unit will start before the specified units.",
	"Requires":    "Strong dependency relationship, if the dependency fails, this unit will also fail.",
	"Wants":       "Weak dependency relationship, dependency failure won't affect this unit.",
	"ExecStart":   "Defines the command to execute when the service starts. Should use absolute paths.",
	"ExecStop":    "Defines the command to execute when the service stops.",
	"Type":        "Defines the service type, can be simple, forking, oneshot, dbus, notify, or idle.",
	"Restart":     "Defines the restart policy when the service exits.",
	"WantedBy":    "Specifies which targets want this unit, used for enabling the unit.",
}

// serviceTypes are the accepted values of Type=.
var serviceTypes = []string{"simple", "forking", "oneshot", "dbus", "notify", "idle"}

// SectionDoc returns the explanatory text for a section name.
func SectionDoc(name string) (string, bool) {
	doc, ok := sectionDocs[name]
	return doc, ok
}

// KeyDoc returns the explanatory text for a key name.
func KeyDoc(name string) (string, bool) {
	doc, ok := keyDocs[name]
	return doc, ok
}

// ServiceTypes returns a copy of the accepted Type= values.
func ServiceTypes() []string {
	return append([]string(nil), serviceTypes...)
}
