package identity

import (
	"fmt"

	"github.com/benmeehan/route-sentinel/pkg/file"
	"github.com/google/uuid"
)

// Identity holds the agent's unique identifier and other metadata.
type Identity struct {
	ID   string `json:"agent_id,omitempty"`
	Name string `json:"agent_name,omitempty"`
}

// AgentInfoInterface defines methods for managing agent identity.
type AgentInfoInterface interface {
	LoadOrCreate() error
	GetAgentID() string
	GetIdentity() *Identity
}

// AgentInfo manages the agent identity and its associated file operations.
type AgentInfo struct {
	InfoFile string
	Identity Identity
	fileOps  file.FileOperations
	newID    func() string
}

// NewAgentInfo initializes a new AgentInfo instance.
func NewAgentInfo(filePath string, fileOps file.FileOperations) *AgentInfo {
	return &AgentInfo{
		InfoFile: filePath,
		fileOps:  fileOps,
		newID:    uuid.NewString,
	}
}

// LoadOrCreate reads the identity file. When the file or its id is missing a new id is
// generated and written back, so the agent keeps its id across restarts.
func (a *AgentInfo) LoadOrCreate() error {
	exists, err := a.fileOps.IsFileExists(a.InfoFile)
	if err != nil {
		return fmt.Errorf("check identity file: %w", err)
	}
	if exists {
		if err := a.fileOps.ReadJsonFile(a.InfoFile, &a.Identity); err != nil {
			return fmt.Errorf("read identity file: %w", err)
		}
	}
	if a.Identity.ID != "" {
		return nil
	}

	a.Identity.ID = a.newID()
	if err := a.fileOps.WriteJsonFile(a.InfoFile, a.Identity); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return nil
}

// GetIdentity returns the current agent Identity.
func (a *AgentInfo) GetIdentity() *Identity {
	return &a.Identity
}

// GetAgentID returns the current agent ID.
func (a *AgentInfo) GetAgentID() string {
	return a.Identity.ID
}
