package compliance

import "fmt"

const extractionSystem = `You are a BMR compliance expert. Extract parameters that need to be verified for compliance.
Look for parameters in these categories:
1. Product Information (name, label claims, batch details)
2. Manufacturing Details (batch size, location, signatures)
3. General Specifications (dosage form, shelf life, storage)
4. Process Parameters (temperatures, pressures, speeds)
5. Quality Parameters (yields, weights, dimensions)
6. Material Specifications (ingredients, quantities)
7. Equipment Parameters (settings, conditions)
8. Packaging Parameters (specifications, requirements)
DO NOT EXTRACT PARAMETERS LIKE "Prepared By QA" OR "Reviewed By Production" OR "Approved By QA"

For each parameter, extract:
- name: parameter name
- value: parameter value
- context: section or category it belongs to

Return a JSON array of parameter objects with this structure:
[
    {
        "name": string,
        "value": string,
        "context": string
    }
]

Do not include any other text or explanation outside the JSON array.`

func extractionPrompt(chunk string) string {
	return fmt.Sprintf("Extract parameters from this content that need compliance verification:\n%s\n\n"+
		"Return ONLY a valid JSON array of parameter objects. Do not include any other text.", chunk)
}

const analysisSystem = `You are a compliance analysis expert. Your task is to analyze each parameter's compliance with the master BMR requirements.
For each parameter:
1. Compare the actual value against the expected value from master BMR
2. Determine if the parameter is compliant
3. Provide a clear explanation for the compliance decision
4. If non-compliant, explain what needs to be changed to achieve compliance

Format your response as a JSON array of parameter analyses, where each analysis contains:
{
    "parameter": string,
    "actual_value": string,
    "expected_value": string,
    "is_compliant": boolean,
    "explanation": string
}

IMPORTANT:
- Return ONLY the JSON array, no other text
- Use true/false for is_compliant (not strings)
- If any values are missing, set them to "non stated"
- Ensure all JSON is properly formatted with correct delimiters`

func analysisPrompt(paramsJSON, master string) string {
	return fmt.Sprintf("Analyze the compliance of these parameters with the master BMR requirements:\n\n"+
		"Parameters to analyze:\n%s\n\n"+
		"Master BMR content for reference:\n%s\n\n"+
		"Return a JSON array of parameter analyses. Each analysis must include parameter, actual_value, "+
		"expected_value, is_compliant, and explanation fields.", paramsJSON, master)
}

const standardSystem = `Parse and analyze this JSON response to identify standard parameters
(for example: 'MFR Reference No', 'BMR Reference No', 'Batch Number', all kinds of Dates, etc).

Standard parameters include:
- Any parameter containing "Reference No" in the name (e.g., 'MFR Reference No', 'BMR Reference No')
- Any parameter named "Batch Number" or "Batch No."
- Any parameter with "product name"
- Any parameter with "Date" in the name or whose actual_value matches common date formats (e.g., 'DD/MM/YYYY', 'YYYY-MM-DD', 'DD-MM-YYYY')
- DO NOT include measurable data (for ex: temperature and weight etc.)
Format your response as a JSON object mapping standard parameter names to their actual values:
{
    "parameter_name": "actual_value",
    ...
}

Return ONLY the JSON object, no other text.`

func standardPrompt(findingsJSON string) string {
	return fmt.Sprintf("Identify standard parameters in the following JSON response:\n\n"+
		"Compliance analysis results:\n%s\n\n"+
		"Return a JSON object mapping standard parameter names to their actual values.", findingsJSON)
}
