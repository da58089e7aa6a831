/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package rubric defines the grading rubric data model and its validator.
//
// Two document shapes are supported. The hierarchical shape groups point-valued
// criteria into weighted categories:
//
//	{
//	  "rubric_id": "sales-demo", "version": "1.0", "status": "current",
//	  "name": "Sales Demo", "description": "...",
//	  "categories": [{
//	    "category_id": "content", "label": "Content", "weight": 0.6, "max_points": 30,
//	    "criteria": [{"criterion_id": "clarity", "label": "Clarity", "desc": "...", "max_points": 10}, ...]
//	  }, ...],
//	  "scale": {"min": 0, "max": 50},
//	  "overall_method": "total_points",
//	  "thresholds": {"pass": 35, "revise": 25}
//	}
//
// The legacy shape lists weighted criteria directly under "criteria", each with
// "id", "label", "desc" and "weight", scored on the rubric scale.
//
// Validate operates on the generic mapping form so that documents can be
// checked before they are trusted to decode. The Rubric type resolves the shape
// once through Format, and Groups gives consumers a shape-agnostic view.
package rubric
