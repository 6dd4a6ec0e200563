package chatstub

import (
	"html/template"
	"io"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var replyPolicy = bluemonday.UGCPolicy()

// renderReply turns assistant markdown into sanitized HTML.
func renderReply(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	return string(replyPolicy.SanitizeBytes(markdown.Render(doc, renderer)))
}

// cannedReply is the assistant's answer to any message.
func cannedReply(prompt string) string {
	return "**Happy to help.** This is a canned reply from the test stub.\n\n" +
		"> " + prompt + "\n\n" +
		"Each message costs a few credits; your balance updates shortly."
}

type loginData struct {
	Title string
}

type chatData struct {
	Title          string
	Email          string
	Credits        int
	PollIntervalMS int64
}

var pages = template.Must(template.New("base").Parse(baseTemplate))

func init() {
	template.Must(pages.New("login").Parse(loginTemplate))
	template.Must(pages.New("chat").Parse(chatTemplate))
}

func renderPage(w io.Writer, name string, data any) error {
	return pages.ExecuteTemplate(w, name, data)
}

const baseTemplate = `{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; margin: 0; }
  header { display: flex; align-items: center; justify-content: flex-end; gap: 12px; padding: 12px 24px; border-bottom: 1px solid #e0e0e0; }
  .credits-badge { display: flex; align-items: center; gap: 6px; padding: 4px 10px; border-radius: 999px; background: #f5f5f5; }
  .avatar { display: flex; align-items: center; gap: 4px; border: 0; background: none; cursor: pointer; }
  .avatar img { width: 24px; height: 24px; border-radius: 50%; }
  .menu { position: absolute; right: 24px; top: 56px; border: 1px solid #e0e0e0; background: #fff; padding: 8px; }
  main { max-width: 720px; margin: 0 auto; padding: 24px; }
  textarea, input { width: 100%; padding: 10px; font-size: 16px; box-sizing: border-box; }
  .notice { color: #b00020; }
  .message { margin: 12px 0; }
</style>
</head>
{{end}}`

const loginTemplate = `{{template "head" .}}<body>
<main>
  <h1>Sign in</h1>
  <div id="login-step"></div>
  <p class="notice" id="login-error" role="alert"></p>
</main>
<script>
(function () {
  var step = document.getElementById('login-step');
  var errorBox = document.getElementById('login-error');
  var email = '';

  function button(label, onClick) {
    var b = document.createElement('button');
    b.type = 'button';
    b.textContent = label;
    b.addEventListener('click', onClick);
    return b;
  }
  function input(type, label) {
    var i = document.createElement('input');
    i.type = type;
    i.placeholder = label;
    i.setAttribute('aria-label', label);
    return i;
  }

  function showStart() {
    step.replaceChildren(button('Continue with Email', showEmail));
  }
  function showEmail() {
    var field = input('email', 'Enter your email');
    step.replaceChildren(field, button('Continue with Email', function () {
      email = field.value;
      showPassword();
    }));
    field.focus();
  }
  function showPassword() {
    var field = input('password', 'Enter your password');
    step.replaceChildren(field, button('Continue', function () { submit(field.value); }));
    field.focus();
  }
  function submit(password) {
    errorBox.textContent = '';
    fetch('/api/login', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ email: email, password: password })
    }).then(function (res) {
      if (res.ok) {
        window.location.assign('/chat');
        return;
      }
      errorBox.textContent = 'Invalid email or password';
      showStart();
    });
  }

  showStart();
})();
</script>
</body>
</html>`

const chatTemplate = `{{template "head" .}}<body>
<header>
  <div class="credits-badge"><span>Credits</span><div class="credits-value" id="credits">{{.Credits}}</div></div>
  <button class="avatar" id="avatar" type="button" aria-label="Account menu">
    <img alt="user avatar" src="data:image/svg+xml,%3Csvg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 24 24'%3E%3Ccircle cx='12' cy='12' r='12' fill='%23888'/%3E%3C/svg%3E">
    <svg width="12" height="12" viewBox="0 0 12 12" aria-hidden="true"><path d="M2 4l4 4 4-4" stroke="#333" fill="none"/></svg>
  </button>
  <div class="menu" id="menu" hidden>
    <div class="menu-email">{{.Email}}</div>
    <button type="button" id="logout">Log Out</button>
  </div>
</header>
<main>
  <h2>What can I help with?</h2>
  <div id="messages"></div>
  <p class="notice" id="notice" role="alert"></p>
  <textarea id="ask" rows="3" placeholder="Ask anything" aria-label="Ask anything"></textarea>
</main>
<script>
(function () {
  var credits = document.getElementById('credits');
  var notice = document.getElementById('notice');
  var messages = document.getElementById('messages');
  var ask = document.getElementById('ask');
  var menu = document.getElementById('menu');

  document.getElementById('avatar').addEventListener('click', function () {
    menu.hidden = !menu.hidden;
  });
  document.getElementById('logout').addEventListener('click', function () {
    fetch('/api/logout', { method: 'POST' }).then(function () {
      window.location.assign('/');
    });
  });

  function refreshCredits() {
    fetch('/api/credits').then(function (res) {
      if (!res.ok) { return null; }
      return res.json();
    }).then(function (body) {
      if (body) { credits.textContent = String(body.credits); }
    }).catch(function () {});
  }
  setInterval(refreshCredits, {{.PollIntervalMS}});

  ask.addEventListener('keydown', function (e) {
    if (e.key !== 'Enter' || e.shiftKey) { return; }
    e.preventDefault();
    var text = ask.value.trim();
    if (!text) { return; }
    notice.textContent = '';
    fetch('/api/messages', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ text: text })
    }).then(function (res) {
      return res.json().then(function (body) { return { status: res.status, body: body }; });
    }).then(function (r) {
      if (r.status === 402) {
        notice.textContent = 'You have insufficient credits to send this message.';
        return;
      }
      if (r.status !== 202) {
        notice.textContent = r.body.error || 'Message failed';
        return;
      }
      ask.value = '';
      var item = document.createElement('div');
      item.className = 'message';
      item.innerHTML = r.body.reply_html;
      messages.appendChild(item);
    });
  });
})();
</script>
</body>
</html>`
