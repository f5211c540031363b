package domain

import (
	"fmt"
	"strings"
)

// ConversationKind definition conversation type
type ConversationKind string

const (
	// ConversationGroup group chat keyed by project id
	ConversationGroup ConversationKind = "group"
	// ConversationSupport 1 on 1 support chat keyed by "<userID>_<agentID>"
	ConversationSupport ConversationKind = "support"
)

// collection / object storage namespace
const (
	NamespaceGroup   = "groupChats"
	NamespaceSupport = "supportChats"
)

// Conversation identifies one message stream
type Conversation struct {
	Kind ConversationKind `json:"kind" bson:"kind"`
	ID   string           `json:"id" bson:"id"`
}

// NewConversation validate kind and id
func NewConversation(kind, id string) (Conversation, error) {
	c := Conversation{Kind: ConversationKind(kind), ID: strings.TrimSpace(id)}
	if c.ID == "" {
		return Conversation{}, fmt.Errorf("conversation id is empty")
	}
	switch c.Kind {
	case ConversationGroup:
	case ConversationSupport:
		if _, _, ok := splitPair(c.ID); !ok {
			return Conversation{}, fmt.Errorf("support conversation id %q is not <user>_<agent>", c.ID)
		}
	default:
		return Conversation{}, fmt.Errorf("unknown conversation kind %q", kind)
	}
	return c, nil
}

// GroupConversation conversation of a project
func GroupConversation(projectID string) Conversation {
	return Conversation{Kind: ConversationGroup, ID: projectID}
}

// SupportConversation conversation between a user and a support agent
func SupportConversation(userID, agentID string) Conversation {
	return Conversation{Kind: ConversationSupport, ID: userID + "_" + agentID}
}

// Namespace top level collection / storage prefix
func (c Conversation) Namespace() string {
	if c.Kind == ConversationSupport {
		return NamespaceSupport
	}
	return NamespaceGroup
}

// Key unique key across kinds, used for channels and cache keys
func (c Conversation) Key() string {
	return c.Namespace() + "/" + c.ID
}

// Participants support conversation pair, nil for group
func (c Conversation) Participants() []string {
	if c.Kind != ConversationSupport {
		return nil
	}
	u, a, ok := splitPair(c.ID)
	if !ok {
		return nil
	}
	return []string{u, a}
}

// OtherParticipant support conversation peer of self
func (c Conversation) OtherParticipant(self string) (string, bool) {
	for _, id := range c.Participants() {
		if id != self {
			return id, true
		}
	}
	return "", false
}

func splitPair(id string) (string, string, bool) {
	parts := strings.Split(id, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
