package vision

// ExtractionPrompt is sent with every page image.
const ExtractionPrompt = `# Document Analysis & Extraction

## Task
Extract structured data from the document image and return it as valid JSON. Use the exact enumeration values listed. Keep all text in its ORIGINAL SCRIPT: never transliterate or translate names, titles or any other text.

## Output Format
{
  "document_classification": {
    "type": "enum: official_letter | decree | regulation | statistical_report | table_of_contents | administrative_decision | legal_amendment | memo | certificate | form | invoice | contract | court_ruling | minutes | circular | announcement | report | other",
    "subtype": "string or null",
    "category": "enum: legal | administrative | financial | statistical | correspondence | technical | hr | other",
    "primary_language": "enum: arabic | english | french | mixed | other",
    "secondary_languages": ["language codes"]
  },
  "source": {
    "issuing_authority": "string in original script",
    "department": "string or null",
    "location": "string or null",
    "document_number": "string or null, exactly as shown",
    "related_references": ["other document numbers mentioned"],
    "dates": {
      "primary_date": {
        "date_text": "string exactly as written",
        "calendar_type": "enum: hijri | gregorian | unknown",
        "date_type": "enum: issue_date | effective_date | received_date | other",
        "indicators": "calendar markers such as 'هـ' or 'م'",
        "location_in_document": "enum: header | body | footer | stamp | other"
      },
      "additional_dates": [
        {"date_text": "string", "calendar_type": "enum", "date_type": "enum: reference_date | deadline | expiry_date | effective_date | other", "context": "string", "indicators": "string or null"}
      ]
    }
  },
  "physical_properties": {
    "page_number": "string such as '7', '7/254', 'single', 'unknown'",
    "total_pages": "integer or null",
    "image_type": "enum: digital | scanned | photographed | mixed | unknown",
    "quality": "enum: high | medium | low | illegible",
    "color_mode": "enum: color | grayscale | black_white | mixed",
    "has_watermark": "boolean",
    "watermark_description": "string or null",
    "has_security_pattern": "boolean",
    "security_pattern_description": "string or null",
    "orientation": "enum: portrait | landscape"
  },
  "official_marks": {
    "seals": [{"organization": "string", "position": "enum: header | footer | center | top_right | top_left | bottom_right | bottom_left | margin | overlapping_text | other", "description": "string", "is_digital": "boolean", "shape": "enum: circular | oval | rectangular | square | irregular | other"}],
    "stamps": [{"type": "enum: approval | received | confidential | urgent | date_stamp | routing | registry | copy | original | other", "text_content": "string", "color": "enum: red | blue | black | green | purple | brown | other", "position": "enum", "is_digital": "boolean", "shape": "enum"}],
    "barcodes_qr": [{"type": "enum: barcode | qr_code | data_matrix | other", "position": "string", "readable_data": "string or null"}]
  },
  "signatures_authorization": {
    "signatories": [{"name": "string exactly as written", "name_transliteration": "string or null, only if both scripts appear", "title": "string", "signature_type": "enum: handwritten | digital | stamp | printed_name | not_present", "position": "enum", "role": "enum: primary_signatory | co_signatory | witness | approver | preparer | reviewer | other"}],
    "approval_chain": [{"step": "integer", "role": "enum: prepared_by | reviewed_by | approved_by | authorized_by | noted_by | verified_by | other", "name": "string or null", "title": "string or null", "date": "string or null"}]
  },
  "routing_distribution": {
    "addressed_to": [{"type": "enum: person | department | organization | position | general", "name": "string", "honorific": "string or null"}],
    "carbon_copy": [{"type": "enum: person | department | organization | position", "name": "string"}],
    "forwarded_to": [{"type": "enum: person | department | organization | position", "name": "string", "date": "string or null"}],
    "file_reference": "string or null",
    "classification": "string or null"
  },
  "content": {
    "subject": "string",
    "subject_translation": "string or null",
    "keywords": ["5-10 keywords in original script"],
    "full_text": "complete text with line breaks, in original script",
    "has_tables": "boolean",
    "tables": [{"title": "string or null", "headers": ["column headers"], "rows": [["cell values"]], "notes": "string or null"}],
    "has_lists": "boolean",
    "lists": [{"type": "enum: numbered | bulleted | lettered | arabic_numbered | hierarchical", "items": ["items"]}],
    "has_charts": "boolean",
    "charts": [{"type": "enum: bar | line | pie | area | scatter | table | mixed | other", "title": "string or null", "description": "string", "data": [{"label": "string", "value": "number or string exactly as shown", "position": "integer"}], "axis_info": {"x_axis_label": "string or null", "y_axis_label": "string or null", "x_axis_type": "enum: categorical | numerical | date | other", "y_axis_type": "enum: categorical | numerical | percentage | other"}, "notes": "string or null"}],
    "legal_articles": [{"article_number": "string", "article_title": "string or null", "content": "string"}],
    "financial_data": [{"description": "string", "amount": "string exactly as shown", "currency": "string"}]
  },
  "structural_elements": {
    "header": {"present": "boolean", "content": "string or null", "has_logo": "boolean", "logo_description": "string or null", "reference_numbers": ["strings"]},
    "footer": {"present": "boolean", "content": "string or null", "has_page_number": "boolean", "page_info": "string or null"},
    "letterhead": {"present": "boolean", "organization_name": "string or null", "organization_name_secondary": "string or null", "emblem_description": "string or null", "contact_info": "string or null"},
    "margins_notes": {"has_margin_notes": "boolean", "margin_content": "string or null"}
  },
  "attachments_references": {
    "attachments_mentioned": [{"description": "string", "count": "integer or null", "reference_number": "string or null"}],
    "referenced_documents": [{"type": "enum: law | regulation | decree | previous_decision | letter | circular | report | contract | minutes | other", "reference": "string", "date": "string or null"}]
  },
  "condition_notes": {
    "completeness": "enum: complete | partial | missing_pages | fragment | unknown",
    "legibility_issues": ["sections with poor legibility"],
    "physical_damage": "enum: none | minor | moderate | severe | not_applicable",
    "damage_description": "string or null",
    "handwritten_annotations": {"present": "boolean", "description": "string or null"},
    "special_observations": "string or null"
  },
  "confidence_quality": {
    "overall_confidence": "enum: high | medium | low",
    "uncertain_elements": ["elements with low confidence"],
    "requires_manual_review": "boolean",
    "review_reasons": ["areas needing verification"]
  }
}

## Rules
1. Keep names, titles and all other text in the script used by the document. Preserve diacritics.
2. For charts, extract the plotted values as structured data objects, not prose summaries.
3. Use null for absent scalar values and [] for absent lists.

Return ONLY the JSON object. No markdown code blocks and no explanatory text. Start with { and end with }.`
