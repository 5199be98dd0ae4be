package servicenow

// Incident state codes used by the task table.
const (
	StateNew        = "1"
	StateInProgress = "2"
	StateResolved   = "6"
)

// Incident is a ServiceNow incident record.
type Incident struct {
	SysID            string `json:"sys_id"`
	Number           string `json:"number"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description,omitempty"`
	State            string `json:"state,omitempty"`
	CallerID         string `json:"caller_id,omitempty"`
	Comments         string `json:"comments,omitempty"`
	OpenedAt         string `json:"opened_at,omitempty"`
	CreatedOn        string `json:"sys_created_on,omitempty"`
	UpdatedOn        string `json:"sys_updated_on,omitempty"`
}

// NewIncident carries the user-supplied fields for CreateIncident.
type NewIncident struct {
	ShortDescription string
	Description      string
	Notes            string
}

// Article is a knowledge-base article.
type Article struct {
	SysID            string `json:"sys_id"`
	Number           string `json:"number"`
	ShortDescription string `json:"short_description"`
	Text             string `json:"text,omitempty"`
	Meta             string `json:"meta,omitempty"`
	WorkflowState    string `json:"workflow_state,omitempty"`
	KnowledgeBase    string `json:"kb_knowledge_base,omitempty"`
}

// User is a sys_user record.
type User struct {
	SysID     string `json:"sys_id"`
	UserName  string `json:"user_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// DisplayName returns "First Last", falling back to the login name.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.UserName
	}
}

// incidentFields is the projection requested when listing incidents.
const incidentFields = "sys_id,sys_created_on,number,opened_at,caller_id,short_description,description,state"

// articleFields is the projection requested when searching the knowledge base.
const articleFields = "sys_id,short_description,workflow_state,kb_knowledge_base,meta,text,number"
