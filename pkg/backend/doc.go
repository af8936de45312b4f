// Package backend provides the client for the streaming text-generation
// service.
//
// The pipeline treats the backend as a black-box token source behind the
// Generator interface: open a stream with a system and user instruction,
// then read chunks until io.EOF or an error. The production
// implementation speaks the OpenAI-compatible chat completions protocol
// over Server-Sent Events; tests substitute scripted generators.
package backend
