package client

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomz197/patchtyper/internal/catalog"
	"github.com/tomz197/patchtyper/internal/config"
	"github.com/tomz197/patchtyper/internal/draw"
	"github.com/tomz197/patchtyper/internal/engine"
)

const (
	cardRows   = 5 // four lines and a gap
	headerRows = 5
	footerRows = 4
)

var titleArt = []string{
	` ___  _ _____ ___ _  _   _______   _____ ___ ___  `,
	`| _ \/_\_   _/ __| || | |_   _\ \ / / _ \ __| _ \ `,
	`|  _/ _ \| || (__| __ |   | |  \ V /|  _/ _||   / `,
	`|_|/_/ \_\_| \___|_||_|   |_|   |_| |_| |___|_|_\ `,
}

var gameOverArt = []string{
	`   ___   _   __  __ ___    _____   _____ ___  `,
	`  / __| /_\ |  \/  | __|  / _ \ \ / / __| _ \ `,
	` | (_ |/ _ \| |\/| | _|  | (_) \ V /| _||   / `,
	`  \___/_/ \_\_|  |_|___|  \___/ \_/ |___|_|_\ `,
}

// segment is a run of text in one style.
type segment struct {
	style draw.Style
	text  string
}

func seg(style draw.Style, text string) segment {
	return segment{style: style, text: text}
}

// drawFrame draws the current frame.
func (c *Client) drawFrame(now time.Time) error {
	cw := c.chunkWriter
	st := c.state

	// On screen, size or inactivity transitions, do a full terminal clear
	// so text from the previous screen doesn't persist.
	if st.needsClear || st.Screen != st.lastScreen || st.isInactive != st.lastInactive {
		cw.SetOffset(0, 0)
		cw.WriteString("\033[H\033[2J")
		c.frame.RenderBorder(cw)
		st.needsClear = false
		st.lastScreen = st.Screen
		st.lastInactive = st.isInactive
	}
	cw.SetOffset(c.frame.OffsetCol, c.frame.OffsetRow)

	snap := c.engine.Snapshot()
	switch {
	case c.frame.Width < config.MinTermWidth || c.frame.Height < config.MinTermHeight:
		c.drawTooSmall()
	case st.Screen == ScreenShutdown:
		c.drawShutdownScreen()
	case st.isInactive:
		c.drawInactivityScreen(now)
	case st.Screen == ScreenTitle:
		c.drawTitleScreen(now)
	case st.Screen == ScreenPlaying:
		c.drawPlayingScreen(snap, now)
	case st.Screen == ScreenWaveComplete:
		c.drawWaveCompleteScreen(snap, now)
	case st.Screen == ScreenGameOver:
		c.drawGameOverScreen(snap, now)
	}

	return cw.Flush()
}

// row writes segments from the left edge of the frame and blanks the rest
// of the row, so shorter text never leaves residue from the previous frame.
func (c *Client) row(row int, segs ...segment) {
	cw := c.chunkWriter
	width := c.frame.Width
	cw.MoveCursor(1, row)

	used := 0
	for _, s := range segs {
		text := draw.Truncate(s.text, width-used)
		if text == "" {
			continue
		}
		cw.WriteString(string(s.style))
		cw.WriteString(text)
		if s.style != draw.Plain {
			cw.WriteString(string(draw.Reset))
		}
		used += draw.Width(text)
	}
	if used < width {
		cw.WriteString(strings.Repeat(" ", width-used))
	}
}

// centered writes text centered on row, blanking the rest of the row.
func (c *Client) centered(row int, style draw.Style, text string) {
	pad := max(0, (c.frame.Width-draw.Width(text))/2)
	c.row(row, seg(draw.Plain, strings.Repeat(" ", pad)), seg(style, text))
}

// blink reports whether blinking prompts are visible at now.
func blink(now time.Time) bool {
	return now.UnixMilli()/600%2 == 0
}

// drawTooSmall asks for a larger terminal.
func (c *Client) drawTooSmall() {
	msg := fmt.Sprintf("Terminal too small (need %dx%d)", config.MinTermWidth, config.MinTermHeight)
	c.chunkWriter.WriteAt(1, 1, draw.Truncate(msg, c.frame.Width))
}

// drawInactivityScreen draws the inactivity warning screen.
func (c *Client) drawInactivityScreen(now time.Time) {
	centerY := c.frame.Height / 2
	c.centered(centerY-2, draw.Bold.With(draw.Yellow), "INACTIVITY WARNING")

	left := int(config.InactivityDisconnectUser - now.Sub(c.lastInput).Seconds())
	c.centered(centerY, draw.Plain, fmt.Sprintf("You will be disconnected in %d seconds.", max(0, left)))
	c.centered(centerY+2, draw.Dim, "Press any key to continue")
}

// drawShutdownScreen draws the server shutdown notification screen.
func (c *Client) drawShutdownScreen() {
	centerY := c.frame.Height / 2
	c.centered(centerY-3, draw.Bold.With(draw.Red), "SERVER SHUTTING DOWN")
	c.centered(centerY-1, draw.Plain, "The server is restarting for maintenance.")
	c.centered(centerY, draw.Plain, "Please reconnect in a moment.")

	remaining := int(c.state.shutdownTimer) + 1
	c.centered(centerY+2, draw.Plain, fmt.Sprintf("Disconnecting in %d seconds...", remaining))
	c.centered(centerY+4, draw.Dim, "Press Q to disconnect now")
}

// drawTitleScreen draws the title screen.
func (c *Client) drawTitleScreen(now time.Time) {
	top := max(1, c.frame.Height/2-9)
	for i, line := range titleArt {
		c.centered(top+i, draw.Bold.With(draw.Green), line)
	}

	y := top + len(titleArt) + 1
	c.centered(y, draw.Cyan, "~ Keep the network alive, one patch at a time ~")

	lines := []string{
		"Threats appear as cards with a countdown.",
		"Type the fix for a threat and press ENTER to patch it.",
		"Wrong fixes cost health. Threats that get through cost more.",
		"Patch enough threats to clear the wave.",
	}
	for i, line := range lines {
		c.centered(y+2+i, draw.Plain, line)
	}

	y += len(lines) + 3
	if blink(now) {
		c.centered(y, draw.Bold, ">>  Press ENTER to Start  <<")
	} else {
		c.centered(y, draw.Plain, "")
	}
	c.centered(y+2, draw.Dim, "TAB sound on/off   ESC clear line   CTRL-C quit")

	linkRow := y + 6
	if players := c.lobby.Players(); len(players) > 1 {
		c.centered(y+4, draw.Dim, fmt.Sprintf("%d defenders online", len(players)))
		for i, p := range players[:min(3, len(players))] {
			if y+5+i >= c.frame.Height {
				break
			}
			c.centered(y+5+i, draw.Dim, fmt.Sprintf("%-16s %6d pts  wave %d", draw.Truncate(p.Username, 16), p.Score, p.Wave))
			linkRow = y + 7 + i
		}
	}

	// GitHub link (OSC 8 clickable hyperlink)
	ghURL := "https://github.com/tomz197/patchtyper"
	ghLabel := "github.com/tomz197/patchtyper"
	if row := linkRow; row <= c.frame.Height {
		c.chunkWriter.WriteAt(draw.CenterCol(c.frame.Width, ghLabel), row,
			fmt.Sprintf("\033]8;;%s\033\\%s\033]8;;\033\\", ghURL, ghLabel))
	}
}

// drawPlayingScreen draws the HUD, the threat cards and the input line.
// Every row is rewritten each frame; the terminal is only cleared on screen changes.
func (c *Client) drawPlayingScreen(snap *engine.Snapshot, now time.Time) {
	w, h := c.frame.Width, c.frame.Height
	barWidth := max(10, w-24)

	// Header
	c.row(1, seg(draw.Bold.With(draw.Green), " PATCH TYPER"), seg(draw.Dim, "  "+c.session.Username))
	sound := "sound on "
	if c.audio.Muted() {
		sound = "sound off"
	}
	c.chunkWriter.WriteStyled(w-len(sound), 1, draw.Dim, sound)

	health := 0.0
	if snap.MaxHealth > 0 {
		health = float64(snap.Health) / float64(snap.MaxHealth)
	}
	c.row(2,
		seg(draw.Bold, " HEALTH  "),
		seg(fractionStyle(health), draw.Bar(barWidth, health)),
		seg(draw.Plain, fmt.Sprintf(" %d/%d", snap.Health, snap.MaxHealth)))

	wave := 0.0
	if snap.ThreatsNeeded > 0 {
		wave = float64(snap.DefeatedThisWave) / float64(snap.ThreatsNeeded)
	}
	c.row(3,
		seg(draw.Bold, " PATCHED "),
		seg(draw.Cyan, draw.Bar(barWidth, wave)),
		seg(draw.Plain, fmt.Sprintf(" %d/%d", snap.DefeatedThisWave, snap.ThreatsNeeded)))

	c.row(4, seg(draw.Plain, fmt.Sprintf(" SCORE %-8d LEVEL %-4d WAVE %-4d NEW THREAT EVERY %.1fs",
		snap.Score, snap.Level, snap.Wave, snap.SpawnInterval.Seconds())))

	// Cards
	top := headerRows + 1
	slots := max(0, (h-footerRows-top+1)/cardRows)
	shown := min(slots, len(snap.Threats))

	title := fmt.Sprintf(" THREATS %d ", len(snap.Threats))
	if hidden := len(snap.Threats) - shown; hidden > 0 {
		title += fmt.Sprintf("(%d not shown) ", hidden)
	}
	c.row(headerRows, seg(draw.Dim, "──"+title+strings.Repeat("─", w)))

	typed := strings.TrimSpace(c.state.Line.String())
	engineNow := c.engine.Now()
	row := top
	for i := 0; i < shown; i++ {
		c.drawThreatCard(row, snap.Threats[i], typed, engineNow, now)
		row += cardRows
	}
	for ; row <= h-footerRows; row++ {
		c.row(row)
	}
	if len(snap.Threats) == 0 && slots > 0 {
		c.centered(top+1, draw.Dim, "No active threats. Stay alert.")
	}

	// Footer
	c.row(h-3, seg(draw.Dim, strings.Repeat("─", w)))
	c.row(h-2, seg(draw.Bold.With(draw.Green), " > "), seg(draw.Plain, c.state.Line.String()), seg(draw.Inverse, " "))
	text, style := c.state.flashText(now)
	c.row(h-1, seg(style, " "+text))
	c.row(h, seg(draw.Dim, " ENTER patch   ESC clear   TAB sound   CTRL-C quit"))
}

// drawThreatCard draws one threat on rows row..row+4.
// engineNow drives the countdown; now animates the floating hint.
func (c *Client) drawThreatCard(row int, t engine.ThreatView, typed string, engineNow, now time.Time) {
	w := c.frame.Width
	active := typed != "" && strings.EqualFold(typed, t.Fix)

	marker, nameStyle := "  ", draw.Bold
	if active {
		marker, nameStyle = "▶ ", draw.Bold.With(draw.Green).With(draw.Inverse)
	}

	right := fmt.Sprintf("%5.1fs  -%dhp ", t.Remaining(engineNow).Seconds(), t.Damage)
	sev := "[" + strings.ToUpper(t.Severity.String()) + "] "
	nameWidth := max(1, w-len(marker)-draw.Width(sev)-len(right)-1)
	c.row(row,
		seg(draw.Green, marker),
		seg(severityStyle(t.Severity), sev),
		seg(nameStyle, draw.Truncate(t.Name, nameWidth)))
	c.chunkWriter.WriteStyled(w-len(right)+1, row, draw.Dim, right)

	c.row(row+1, seg(draw.Dim, "    "+t.Description))

	hint := hintFor(c.ui, t.Fix)
	switch {
	case hint == "":
		c.row(row+2, seg(draw.Yellow, "    Fix required"))
	case c.ui.HintStyle == config.HintFloating:
		span := max(0, w-8-draw.Width(hint))
		offset := floatOffset(t.ID, now, span)
		c.row(row+2, seg(draw.Plain, strings.Repeat(" ", 4+offset)), seg(draw.Dim.With(draw.Green), hint))
	default:
		c.row(row+2, seg(draw.Yellow, "    Fix: "), seg(draw.Green, hint))
	}

	progress := t.Progress(engineNow)
	c.row(row+3, seg(draw.Plain, "    "), seg(fractionStyle(progress), draw.Bar(max(1, w-8), progress)))
	c.row(row + 4)
}

// drawWaveCompleteScreen shows the wave summary.
func (c *Client) drawWaveCompleteScreen(snap *engine.Snapshot, now time.Time) {
	top := max(1, c.frame.Height/2-7)
	c.centered(top, draw.Bold.With(draw.Green), fmt.Sprintf("WAVE %d COMPLETE", snap.Wave))
	c.centered(top+1, draw.Dim, "All threats for this wave were patched.")

	c.centered(top+3, draw.Yellow, fmt.Sprintf("Wave bonus       +%-6d", snap.WaveBonus))
	c.centered(top+4, draw.Red, fmt.Sprintf("Health restored  +%-6d", snap.HealthRestored))
	c.centered(top+5, draw.Plain, fmt.Sprintf("Health     %4d/%-4d", snap.Health, snap.MaxHealth))
	c.centered(top+6, draw.Plain, fmt.Sprintf("Score      %-9d", snap.Score))
	c.centered(top+7, draw.Plain, fmt.Sprintf("Level      %-9d", snap.Level))

	if snap.Wave > 0 {
		next := snap.ThreatsNeeded / snap.Wave * (snap.Wave + 1)
		c.centered(top+9, draw.Cyan, fmt.Sprintf("Next wave: patch %d threats", next))
	}

	if blink(now) {
		c.centered(top+11, draw.Bold, fmt.Sprintf(">>  Press ENTER to start wave %d  <<", snap.Wave+1))
	} else {
		c.centered(top+11, draw.Plain, "")
	}
}

// drawGameOverScreen shows the final result and the restart prompt.
func (c *Client) drawGameOverScreen(snap *engine.Snapshot, now time.Time) {
	top := max(1, c.frame.Height/2-8)
	for i, line := range gameOverArt {
		c.centered(top+i, draw.Bold.With(draw.Red), line)
	}

	y := top + len(gameOverArt) + 1
	c.centered(y, draw.Plain, "The network fell. Too many threats got through.")
	c.centered(y+2, draw.Bold, fmt.Sprintf("Score %d   Level %d   Wave %d", snap.Score, snap.Level, snap.Wave))

	y += 4
	for _, line := range draw.Wrap(ShareText(snap.Score, snap.Level, snap.Wave), max(20, c.frame.Width-8)) {
		c.centered(y, draw.Cyan, line)
		y++
	}

	if blink(now) {
		c.centered(y+1, draw.Bold, ">>  Press ENTER to Play Again  <<")
	} else {
		c.centered(y+1, draw.Plain, "")
	}
	c.centered(y+3, draw.Dim, "CTRL-C to quit")
}

// ShareText is the line players can share after a game.
func ShareText(score, level, wave int) string {
	return fmt.Sprintf("I scored %d points, reached level %d and wave %d in Patch Typer, the cybersecurity typing game! Can you beat my score?",
		score, level, wave)
}

// hintFor returns the fix hint to show for a threat, or "" for none.
func hintFor(ui config.UIConfig, fix string) string {
	if !ui.ShowFixHint {
		return ""
	}
	switch ui.HintStyle {
	case config.HintFull, config.HintFloating:
		return fix
	case config.HintPartial:
		return partialHint(fix)
	default:
		return ""
	}
}

// partialHint keeps the first letter of each word and blanks the rest.
func partialHint(fix string) string {
	words := strings.Fields(fix)
	for i, word := range words {
		r := []rune(word)
		words[i] = string(r[0]) + strings.Repeat("_", len(r)-1)
	}
	return strings.Join(words, " ")
}

// floatOffset drifts a hint slowly across span columns. Each threat has its own phase.
func floatOffset(id uint64, now time.Time, span int) int {
	if span <= 0 {
		return 0
	}
	t := float64(now.UnixMilli()) / 4000
	pos := (math.Sin(t+float64(id)) + 1) / 2
	return int(pos * float64(span))
}

// fractionStyle colors a bar by how full it is.
func fractionStyle(f float64) draw.Style {
	switch {
	case f > 0.6:
		return draw.Green
	case f > 0.3:
		return draw.Yellow
	default:
		return draw.Red
	}
}

func severityStyle(s catalog.Severity) draw.Style {
	switch s {
	case catalog.SeverityCritical:
		return draw.BrightRed.With(draw.Bold)
	case catalog.SeverityHigh:
		return draw.Red
	case catalog.SeverityMedium:
		return draw.Yellow
	default:
		return draw.Green
	}
}
