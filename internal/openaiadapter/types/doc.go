// Package types provides the OpenAI chat-completion wire types served by the gateway.
//
// The types are written by hand and cover only the request and response surface the
// gateway implements:
//
//  1. SERVER-SIDE vs CLIENT-SIDE: The openai-go SDK is designed for making outbound
//     API calls TO OpenAI. The gateway receives inbound requests FROM clients and
//     answers them with text generated by an SGLang engine.
//
//  2. FIELD PATTERNS: Optional fields use standard Go pointers (*string, *int) so that
//     absent and zero values stay distinguishable with encoding/json.
//
//  3. UNIONS: The few union-typed request fields (message content, stop, tool_choice)
//     implement json.Unmarshaler directly instead of relying on generated helpers.
//
// Struct tags carry validator/v10 rules; requests are validated right after decoding.
package types
