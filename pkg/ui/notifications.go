package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"igvision/pkg/pipeline"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("igvision").Show($toast)
	`, title, message)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

// Notifier sends a desktop notification when enabled and always echoes the
// message through the printer
type Notifier struct {
	sender  NotificationSender
	printer *Printer
	enabled bool
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(p *Printer, enabled bool) *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return &Notifier{sender: sender, printer: p, enabled: enabled}
}

// NewNotifierWithSender creates a Notifier over an explicit sender
func NewNotifierWithSender(p *Printer, sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, printer: p, enabled: sender != nil}
}

// RunFinished reports the outcome of a pipeline run
func (n *Notifier) RunFinished(username string, s pipeline.Summary) {
	title := "igvision: @" + username
	if !s.OK() {
		n.printer.Error(title, fmt.Errorf("%s", s.Error))
		n.send(title, "Run failed: "+s.Error)
		return
	}

	msg := fmt.Sprintf("%d posts, %d images analyzed", s.PostsProcessed, s.ImagesAnalyzed)
	n.printer.Success(title + ": " + msg)
	n.send(title, msg)
}

func (n *Notifier) send(title, message string) {
	if !n.enabled || n.sender == nil {
		return
	}
	// desktop notifications are best effort
	_ = n.sender.Send(title, message)
}
