// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package voice

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"
)

// LiveModel is the model name used to open a Live session. Kept as a var,
// not a const, so tests and future config wiring can override it.
var LiveModel = "gemini-2.0-flash-live-001"

// ModelSession is the orchestrator's whole contract with the concrete
// voice model client, so the client can be swapped without touching the
// orchestrator. Tests substitute a fake; production wires connectGenAI.
type ModelSession interface {
	SendText(ctx context.Context, text string, turnComplete bool) error
	SendAudioChunk(ctx context.Context, pcmBase64 string) error
	SendAudioStreamEnd(ctx context.Context) error
	Recv() (ServerEvent, error)
	Close() error
}

// ModelFactory opens a new ModelSession. Production code uses connectGenAI;
// tests inject a fake factory.
type ModelFactory func(ctx context.Context, apiKey, systemInstruction, voiceName string) (ModelSession, error)

// connectGenAI is the production ModelFactory: it opens a Gemini Live
// session configured for audio responses in the given voice.
func connectGenAI(ctx context.Context, apiKey, systemInstruction, voiceName string) (ModelSession, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("voice: new client: %w", err)
	}

	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction:  genai.NewContentFromText(systemInstruction, genai.RoleUser),
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceName},
			},
		},
	}

	session, err := client.Live.Connect(ctx, LiveModel, cfg)
	if err != nil {
		return nil, fmt.Errorf("voice: connect live session: %w", err)
	}
	return &genaiSession{session: session}, nil
}

type genaiSession struct {
	session *genai.Session
}

func (g *genaiSession) SendText(ctx context.Context, text string, turnComplete bool) error {
	return g.session.SendClientContent(genai.LiveClientContentInput{
		Turns:        []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		TurnComplete: genai.Ptr(turnComplete),
	})
}

func (g *genaiSession) SendAudioChunk(ctx context.Context, pcmBase64 string) error {
	raw, err := base64.StdEncoding.DecodeString(pcmBase64)
	if err != nil {
		return fmt.Errorf("voice: decode driver audio chunk: %w", err)
	}
	return g.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: raw, MIMEType: "audio/pcm;rate=16000"},
	})
}

func (g *genaiSession) SendAudioStreamEnd(ctx context.Context) error {
	return g.session.SendRealtimeInput(genai.LiveRealtimeInput{AudioStreamEnd: true})
}

func (g *genaiSession) Recv() (ServerEvent, error) {
	msg, err := g.session.Receive()
	if err != nil {
		return ServerEvent{}, err
	}

	var ev ServerEvent
	if msg.ServerContent == nil {
		return ev, nil
	}
	ev.TurnComplete = msg.ServerContent.TurnComplete
	if in := msg.ServerContent.InputTranscription; in != nil && in.Text != "" {
		ev.Text = in.Text
		ev.IsTranscript = true
		return ev, nil
	}
	if mt := msg.ServerContent.ModelTurn; mt != nil {
		for _, part := range mt.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				ev.AudioBase64 = base64.StdEncoding.EncodeToString(part.InlineData.Data)
			}
			if part.Text != "" {
				ev.Text += part.Text
			}
		}
	}
	return ev, nil
}

func (g *genaiSession) Close() error {
	return g.session.Close()
}
