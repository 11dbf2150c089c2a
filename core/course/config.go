package course

import "go.mongodb.org/mongo-driver/bson/primitive"

// ConfigKind selects the singleton QuestionConfig for a question type. The
// config is looked up by this well-known key, never by "first document", so
// concurrent first saves cannot create two.
type ConfigKind string

const (
	ConfigMCQ       ConfigKind = "mcq"
	ConfigRearrange ConfigKind = "rearrange"
)

// QuestionConfig accumulates the distinct difficulty levels, topics,
// subtopics and tags ever saved for one question kind. It is a high-water
// mark: values are never removed, even when every contributing question is
// deleted. Filter menus read it instead of running a live distinct query.
type QuestionConfig struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Kind             ConfigKind         `json:"kind" bson:"kind"`
	DifficultyLevels []string           `json:"difficulty_levels" bson:"difficulty_levels"`
	Topics           []string           `json:"topics" bson:"topics"`
	Subtopics        []string           `json:"subtopics" bson:"subtopics"`
	Tags             []string           `json:"tags" bson:"tags"`
}

// ConfigValues is the contribution of one saved question to its kind's config.
type ConfigValues struct {
	DifficultyLevels []string
	Topics           []string
	Subtopics        []string
	Tags             []string
}

func (v ConfigValues) IsEmpty() bool {
	return len(v.DifficultyLevels) == 0 && len(v.Topics) == 0 && len(v.Subtopics) == 0 && len(v.Tags) == 0
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MergeInto unions the values into the config, preserving first-seen order.
// Used by storage backends that cannot express an atomic set-union natively.
func (v ConfigValues) MergeInto(cfg *QuestionConfig) {
	cfg.DifficultyLevels = appendMissing(cfg.DifficultyLevels, v.DifficultyLevels)
	cfg.Topics = appendMissing(cfg.Topics, v.Topics)
	cfg.Subtopics = appendMissing(cfg.Subtopics, v.Subtopics)
	cfg.Tags = appendMissing(cfg.Tags, v.Tags)
}

func appendMissing(dst, vals []string) []string {
	for _, val := range vals {
		if val == "" {
			continue
		}
		found := false
		for _, have := range dst {
			if have == val {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, val)
		}
	}
	return dst
}
