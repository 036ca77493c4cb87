package generator

import "fmt"

const promptTemplate = `Generate a detailed roadmap for learning the topic: %q. Use the following format:
- Each topic or subtopic must start with a "|".
- Indent subtopics by adding more "|" (e.g., "||" for level 2, "|||" for level 3). Do not use ':' or similar punctuation.
- Use "->" to show relationships or connections between topics and subtopics (e.g., "Topic A -> Subtopic A1").

Example format:
| Topic A
|| Subtopic A1
|| Subtopic A2 -> Subtopic A3
| Topic B
|| Subtopic B1
|| Subtopic B1.1
||| Sub-subtopic B1.2 -> Sub-subtopic B1.3
| Topic C
|| Subtopic C1 -> Subtopic C2
||| Sub-subtopic C1.2 -> Sub-subtopic C1.3

Generate the roadmap with the structure as above.`

// Prompt returns the instruction sent to a text model for topic.
func Prompt(topic string) string {
	return fmt.Sprintf(promptTemplate, topic)
}
