package pipeline

import "fmt"

// enrichmentPromptTemplate instructs the model to rewrite a raw note into
// structured markdown and extract the entities it mentions. The response
// must be a single JSON object so it can be parsed without post-processing.
const enrichmentPromptTemplate = `Analyze the following developer note:
"""
%s
"""

Based ONLY on the text provided, perform the following tasks:
1.  **Refine Text:** Rewrite the note into clear, structured documentation suitable for a knowledge base. Use markdown formatting (like headings, lists, code blocks if appropriate). If the input is already well-structured, just return it.
2.  **Extract Entities:** Identify key entities (projects, technologies, components, concepts, people, bug IDs, etc.) mentioned. For each entity, provide its name and a general type (e.g., 'project', 'technology', 'concept', 'person', 'bug_id').

Format the output STRICTLY as a JSON object with the following keys:
- "processed_text": (string) The refined documentation text.
- "entities": (array of objects) Each object should have "name" (string) and "type" (string).

Example output format:
{
  "processed_text": "### Authentication Flow Bug Fix\n\n- **Issue:** Annoying bug in the authentication flow.\n- **Solution:** Added proper error handling to the login form component.",
  "entities": [
    { "name": "authentication flow", "type": "concept" },
    { "name": "login form", "type": "component" },
    { "name": "error handling", "type": "concept" }
  ]
}

If no entities can be reliably extracted from the text, return an empty array for that key. Provide only the JSON object in your response.`

// EnrichmentPrompt builds the generation prompt for a raw note.
func EnrichmentPrompt(rawText string) string {
	return fmt.Sprintf(enrichmentPromptTemplate, rawText)
}
