package frames

import _ "embed"

//go:embed prompts/vision.txt
var visionPrompt string
