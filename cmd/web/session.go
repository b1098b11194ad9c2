package main

// The browser session stores the registry keys of its active design and survey sessions under these keys.
const (
	designSessionKey = "design"
	surveySessionKey = "survey"
)
