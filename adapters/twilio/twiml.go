package twilio

import (
	"encoding/xml"
	"fmt"
)

// StreamParameter is one custom parameter handed to the media stream. The
// provider delivers these back in the stream's start event.
type StreamParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type twimlStream struct {
	URL        string            `xml:"url,attr"`
	Parameters []StreamParameter `xml:"Parameter"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

// StreamTwiML renders the TwiML that connects an inbound call to a
// bidirectional media stream websocket. Parameter values are XML-escaped by
// the encoder, so free-text instructions are safe to pass through.
func StreamTwiML(streamURL string, params []StreamParameter) (string, error) {
	response := twimlResponse{
		Connect: twimlConnect{
			Stream: twimlStream{
				URL:        streamURL,
				Parameters: params,
			},
		},
	}

	body, err := xml.MarshalIndent(response, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal TwiML: %w", err)
	}

	return xml.Header + string(body), nil
}
