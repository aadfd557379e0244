package apiclient

import "context"

// CannedLanguageFile is the PHP source returned for every getLanguageFile call.
const CannedLanguageFile = `<?php
		return array (
			'favorites' => 'Favoriten',
			'help' => 'Hilfe',
			'login' => 'Anmelden',
			'sign up' => 'Registrieren'
		);`

// CannedAppletLanguageFile is the XML returned for every getAppletLanguageFile call.
const CannedAppletLanguageFile = `<?xml version="1.0" encoding="UTF-8"?>
		<data>
			<button_send value="Küldés"/>
			<button_ok value="OK"/>
			<button_close value="Bezárás"/>
			<button_back value="Vissza"/>
			<cancel value="Törlés"/>
		</data>`

// CannedAppletLanguages is the language list returned for every applet.
var CannedAppletLanguages = []string{"en"}

// Canned answers every call from fixed data without touching the network.
// Used for offline runs and as the default when no API URL is configured.
type Canned struct{}

// Call implements Client. A request without a known action yields no result.
func (Canned) Call(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, nil
	}

	switch req.Action {
	case ActionLanguageFile:
		return OK(CannedLanguageFile)
	case ActionAppletLanguages:
		return OK(CannedAppletLanguages)
	case ActionAppletLanguageFile:
		return OK(CannedAppletLanguageFile)
	}
	return nil, nil
}
