// Package recognizer holds the pieces shared by vision model recognizers:
// the extraction prompt and the rate-limit error contract.
package recognizer

// BuildTallySheetPrompt returns the extraction prompt for tally sheet pages.
func BuildTallySheetPrompt() string {
	return `You are a data extraction assistant for paper health facility tally sheets. Analyze the provided page image and extract ALL of its content into the following JSON structure.

IMPORTANT INSTRUCTIONS:
- Identify every table on the page, including its structure of columns and rows.
- The table name is written at the top left of each table; include it as "table_name".
- Put the column headers in the "headers" array and the grid of cells in the "data" array of arrays, in reading order.
- Transcribe cell contents exactly as written, including tally counts and crossed-out marks. Use null for cells that are empty or unreadable.
- Every row of "data" must have exactly as many entries as "headers".
- All content outside the tables (facility name, dates, signatures, remarks) goes into a "non_table_data" object of key-value pairs.

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation.

The JSON object must follow this schema:
{
  "tables": [
    {
      "table_name": "",
      "headers": ["", ""],
      "data": [["", ""]]
    }
  ],
  "non_table_data": {}
}`
}
