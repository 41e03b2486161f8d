// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package sos

import (
	"fmt"
	"strings"

	"github.com/tomtom215/traveal/internal/models"
)

// defaultLocalArea is spoken when the client does not know where it is.
const defaultLocalArea = "your area"

// VoiceScript is the check-in the client reads out when an alert fires.
type VoiceScript struct {
	Language  string `json:"language"`
	Primary   string `json:"primary_message"`
	Secondary string `json:"secondary_message"`
	IsTest    bool   `json:"is_test"`
}

// voiceTemplate holds one language. Primary takes the local area.
type voiceTemplate struct {
	primary   string
	secondary string
}

var voiceTemplates = map[string]voiceTemplate{
	"en": {
		primary:   "This is the police of %s. We are checking on you to confirm if you are fine.",
		secondary: "You have 1 minute to enter your password to confirm you are safe, or the police will arrive at your destination.",
	},
	"hi": {
		primary:   "यह %s की पुलिस है। हम आपसे संपर्क कर रहे हैं यह सुनिश्चित करने के लिए कि आप ठीक हैं।",
		secondary: "आपके पास अपनी सुरक्षा की पुष्टि करने के लिए पासवर्ड दर्ज करने के लिए 1 मिनट है, या पुलिस आपके गंतव्य पर पहुंच जाएगी।",
	},
	"ml": {
		primary:   "ഇത് %s പോലീസാണ്. നിങ്ങൾ സുരക്ഷിതരാണെന്ന് ഉറപ്പാക്കാൻ ഞങ്ങൾ നിങ്ങളെ പരിശോധിക്കുകയാണ്.",
		secondary: "നിങ്ങളുടെ സുരക്ഷ സ്ഥിരീകരിക്കാൻ പാസ്‌വേഡ് നൽകാൻ നിങ്ങൾക്ക് 1 മിനിറ്റ് സമയമുണ്ട്, അല്ലെങ്കിൽ പോലീസ് നിങ്ങളുടെ ലക്ഷ്യസ്ഥാനത്ത് എത്തും.",
	},
	"ta": {
		primary:   "இது %s பொலிஸ். நீங்கள் நன்றாக இருக்கிறீர்களா என்பதை உறுதிப்படுத்த நாங்கள் உங்களைச் சரிபார்க்கிறோம்.",
		secondary: "நீங்கள் பாதுகாப்பாக இருப்பதை உறுதிப்படுத்த கடவுச்சொல்லை உள்ளிட உங்களுக்கு 1 நிமிடம் உள்ளது, அல்லது பொலிஸார் உங்கள் இலக்கிற்கு வருவார்கள்.",
	},
	"te": {
		primary:   "ఇది %s పోలీసులు. మీరు సురక్షితంగా ఉన్నారా అని నిర్ధారించుకోవడానికి మేము మిమ్మల్ని చెక్ చేస్తున్నాము.",
		secondary: "మీరు సురక్షితంగా ఉన్నారని నిర్ధారించడానికి పాస్‌వర్డ్ ఎంటర్ చేయడానికి మీకు 1 నిమిషం సమయం ఉంది, లేకపోతే పోలీసులు మీ గమ్యస్థానానికి చేరుకుంటారు.",
	},
	"kn": {
		primary:   "ಇದು %s ಪೊಲೀಸ್. ನೀವು ಸುರಕ್ಷಿತವಾಗಿ ಇದ್ದೀರಾ ಎಂದು ಖಚಿತಪಡಿಸಿಕೊಳ್ಳಲು ನಾವು ನಿಮ್ಮನ್ನು ಪರಿಶೀಲಿಸುತ್ತಿದ್ದೇವೆ.",
		secondary: "ನೀವು ಸುರಕ್ಷಿತವಾಗಿದ್ದೀರಿ ಎಂದು ದೃಢೀಕರಿಸಲು ಪಾಸ್‌ವರ್ಡ್ ಅನ್ನು ನಮೂದಿಸಲು ನಿಮಗೆ 1 ನಿಮಿಷ ಸಮಯವಿದೆ, ಅಥವಾ ಪೊಲೀಸರು ನಿಮ್ಮ ಗಮ್ಯಸ್ಥಾನಕ್ಕೆ ಬರುತ್ತಾರೆ.",
	},
}

// BuildVoiceScript renders the check-in for language. An empty language
// selects English and an empty localArea reads "your area".
func BuildVoiceScript(language, localArea string) (VoiceScript, error) {
	if language == "" {
		language = "en"
	}
	tmpl, ok := voiceTemplates[language]
	if !ok {
		return VoiceScript{}, models.NewValidationError("language",
			"must be one of "+strings.Join(models.VoiceLanguages, ", "))
	}
	localArea = strings.TrimSpace(localArea)
	if localArea == "" {
		localArea = defaultLocalArea
	}
	return VoiceScript{
		Language:  language,
		Primary:   fmt.Sprintf(tmpl.primary, localArea),
		Secondary: tmpl.secondary,
	}, nil
}
