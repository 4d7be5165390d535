// Package gemini implements the extraction interface using Google's Gemini API.
package gemini
