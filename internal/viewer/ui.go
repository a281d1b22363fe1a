package viewer

import (
	"net/http"
)

const viewerHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Patient Records Viewer</title>
  <style>
    :root{
      --bg: #f4f6f9;
      --panel: #ffffff;
      --border: #dde3ea;
      --text: #1c2733;
      --muted: #5b6b7b;
      --accent: #1766d1;
      --accent-soft: #e8f0fc;
      --danger: #c23934;
      --danger-soft: #fdecea;
      --ok: #2e844a;
      --bubble-user: #1766d1;
      --bubble-user-text: #ffffff;
      --bubble-bot: #eef1f5;
      --bubble-bot-text: #1c2733;
      --shadow: 0 8px 28px rgba(28,39,51,0.10);
      --radius: 12px;
      --font: ui-sans-serif, -apple-system, system-ui, Segoe UI, Roboto, Helvetica, Arial, sans-serif;
      --mono: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", monospace;
    }
    html, body { height: 100%; }
    body{
      margin:0;
      font-family: var(--font);
      background: var(--bg);
      color: var(--text);
      display:flex;
      flex-direction: column;
    }
    .topbar{
      display:flex;
      align-items:center;
      gap: 14px;
      padding: 12px 20px;
      background: var(--panel);
      border-bottom: 1px solid var(--border);
    }
    .topbar .title{ font-size: 17px; font-weight: 650; }
    .topbar .patient{ font-size: 14px; color: var(--muted); }
    .topbar .spacer{ flex: 1; }
    .pill{
      display:inline-flex;
      align-items:center;
      gap: 7px;
      padding: 4px 10px;
      border-radius: 999px;
      font-size: 12px;
      color: var(--muted);
      border: 1px solid var(--border);
    }
    .dot{ width: 8px; height: 8px; border-radius: 50%; background: #b9c2cc; }
    .dot.ok{ background: var(--ok); }
    .dot.bad{ background: var(--danger); }
    button{
      font-family: var(--font);
      font-size: 13px;
      padding: 7px 14px;
      border-radius: 8px;
      border: 1px solid var(--border);
      background: var(--panel);
      color: var(--text);
      cursor: pointer;
    }
    button.primary{ background: var(--accent); border-color: var(--accent); color: #fff; }
    button:disabled{ opacity: 0.5; cursor: default; }
    .layout{
      flex: 1;
      display:flex;
      min-height: 0;
    }
    .sidebar{
      width: 260px;
      background: var(--panel);
      border-right: 1px solid var(--border);
      overflow-y: auto;
      padding: 14px;
      box-sizing: border-box;
    }
    .sidebar h2{ font-size: 12px; text-transform: uppercase; letter-spacing: 0.08em; color: var(--muted); margin: 4px 4px 10px; }
    .patient-item{
      padding: 9px 12px;
      border-radius: 8px;
      font-size: 14px;
      cursor: pointer;
      margin-bottom: 2px;
    }
    .patient-item:hover{ background: var(--accent-soft); }
    .patient-item.active{ background: var(--accent-soft); color: var(--accent); font-weight: 600; }
    .sidebar .note{ font-size: 13px; color: var(--muted); padding: 8px 4px; }
    .main{
      flex: 1;
      min-width: 0;
      display:flex;
      gap: 16px;
      padding: 16px;
      box-sizing: border-box;
      overflow: hidden;
    }
    .column{ display:flex; flex-direction: column; gap: 16px; min-height: 0; }
    .column.left{ flex: 3; }
    .column.right{ flex: 2; }
    .card{
      background: var(--panel);
      border: 1px solid var(--border);
      border-radius: var(--radius);
      box-shadow: var(--shadow);
      display:flex;
      flex-direction: column;
      min-height: 0;
    }
    .card .card-head{
      display:flex;
      align-items:center;
      gap: 10px;
      padding: 12px 16px;
      border-bottom: 1px solid var(--border);
      font-size: 14px;
      font-weight: 650;
    }
    .card .card-head .spacer{ flex: 1; }
    .card .card-body{ padding: 14px 16px; overflow-y: auto; }
    .summary-card{ flex: 0 0 auto; max-height: 45%; }
    .summary-section h3{ font-size: 13px; margin: 12px 0 4px; color: var(--accent); }
    .summary-section h3:first-child{ margin-top: 0; }
    .summary-section p{ font-size: 13.5px; line-height: 1.5; margin: 0; white-space: pre-wrap; }
    .chat-card{ flex: 1; }
    .messages{ flex: 1; overflow-y: auto; padding: 14px 16px; scroll-behavior: smooth; }
    .row{ display:flex; margin-bottom: 10px; }
    .row.user{ justify-content: flex-end; }
    .bubble{
      max-width: 78%;
      padding: 9px 13px;
      border-radius: 14px;
      font-size: 13.5px;
      line-height: 1.45;
      white-space: pre-wrap;
      word-wrap: break-word;
    }
    .row.user .bubble{ background: var(--bubble-user); color: var(--bubble-user-text); border-bottom-right-radius: 4px; }
    .row.bot .bubble{ background: var(--bubble-bot); color: var(--bubble-bot-text); border-bottom-left-radius: 4px; }
    .row.bot .bubble.error{ background: var(--danger-soft); color: var(--danger); }
    .typing{ display:inline-flex; gap: 4px; padding: 11px 13px; }
    .typing span{
      width: 7px; height: 7px; border-radius: 50%;
      background: #9aa7b4;
      animation: blink 1.2s infinite both;
    }
    .typing span:nth-child(2){ animation-delay: 0.2s; }
    .typing span:nth-child(3){ animation-delay: 0.4s; }
    @keyframes blink{ 0%, 80%, 100% { opacity: 0.25; } 40% { opacity: 1; } }
    .chat-input{
      display:flex;
      gap: 10px;
      padding: 12px 16px;
      border-top: 1px solid var(--border);
    }
    .chat-input input{
      flex: 1;
      font-family: var(--font);
      font-size: 14px;
      padding: 9px 12px;
      border-radius: 8px;
      border: 1px solid var(--border);
      outline: none;
    }
    .chat-input input:focus{ border-color: var(--accent); }
    .docs-card{ flex: 1; }
    .doc-group h3{
      font-size: 12px;
      text-transform: uppercase;
      letter-spacing: 0.06em;
      color: var(--muted);
      margin: 14px 0 6px;
    }
    .doc-group h3:first-child{ margin-top: 0; }
    .doc-item{
      display:flex;
      align-items:center;
      gap: 8px;
      padding: 8px 10px;
      border-radius: 8px;
      font-size: 13.5px;
      cursor: pointer;
    }
    .doc-item:hover{ background: var(--accent-soft); }
    .doc-item.active{ background: var(--accent-soft); color: var(--accent); font-weight: 600; }
    .badge{
      font-size: 11px;
      padding: 2px 8px;
      border-radius: 999px;
      background: var(--accent-soft);
      color: var(--accent);
      white-space: nowrap;
    }
    .reader{
      position: fixed;
      inset: 0;
      background: rgba(28,39,51,0.45);
      display: none;
      align-items: center;
      justify-content: center;
      z-index: 20;
    }
    .reader.open{ display:flex; }
    .reader .sheet{
      width: min(860px, 92vw);
      height: min(640px, 86vh);
      background: var(--panel);
      border-radius: var(--radius);
      box-shadow: var(--shadow);
      display:flex;
      flex-direction: column;
      overflow: hidden;
    }
    .reader pre{
      flex: 1;
      margin: 0;
      padding: 16px;
      overflow: auto;
      font-family: var(--mono);
      font-size: 12.5px;
      line-height: 1.5;
      white-space: pre-wrap;
    }
    .state-note{ font-size: 13.5px; color: var(--muted); }
    .state-note.error{ color: var(--danger); }
    .placeholder{
      flex: 1;
      display:flex;
      align-items:center;
      justify-content:center;
      color: var(--muted);
      font-size: 14px;
    }
    .banner{
      margin: 10px 14px 0;
      padding: 9px 12px;
      border-radius: 8px;
      background: var(--danger-soft);
      color: var(--danger);
      font-size: 13px;
      display: none;
    }
    .banner.show{ display:block; }
  </style>
</head>
<body>
  <div class="topbar">
    <div class="title">Patient Records Viewer</div>
    <div class="patient" id="patientLabel"></div>
    <div class="spacer"></div>
    <button id="backBtn" style="display:none">Back to patients</button>
    <div class="pill"><span class="dot" id="dot"></span><span id="statusText">Connecting...</span></div>
  </div>
  <div class="banner" id="banner"></div>
  <div class="layout">
    <div class="sidebar">
      <h2>Patients</h2>
      <div id="patientList"><div class="note">Loading patients...</div></div>
    </div>
    <div class="main" id="main">
      <div class="placeholder" id="placeholder">Select a patient to view their records.</div>
      <div class="column left" id="leftColumn" style="display:none">
        <div class="card summary-card">
          <div class="card-head">Summary<div class="spacer"></div><button id="retryBtn" style="display:none">Retry</button></div>
          <div class="card-body" id="summaryBody"></div>
        </div>
        <div class="card chat-card">
          <div class="card-head">Ask about this patient</div>
          <div class="messages" id="messages"></div>
          <div class="chat-input">
            <input id="chatInput" type="text" placeholder="Type a question..." autocomplete="off" />
            <button class="primary" id="sendBtn">Send</button>
          </div>
        </div>
      </div>
      <div class="column right" id="rightColumn" style="display:none">
        <div class="card docs-card">
          <div class="card-head">Records<div class="spacer"></div><button id="docsBtn">Open</button></div>
          <div class="card-body" id="docsBody"><div class="state-note">Open to browse this patient's documents.</div></div>
        </div>
      </div>
    </div>
  </div>
  <div class="reader" id="reader">
    <div class="sheet">
      <div class="card-head"><span id="readerTitle">Document</span><span class="badge" id="readerBadge" style="display:none"></span><div class="spacer"></div><button id="readerClose">Close</button></div>
      <pre id="readerContent"></pre>
    </div>
  </div>

  <script>
    const POLL_MS = Number(new URLSearchParams(location.search).get("poll_ms") || "1500");

    function escapeHTML(str) {
      return (str || "").replace(/[&<>"']/g, (c) => ({
        "&": "&amp;",
        "<": "&lt;",
        ">": "&gt;",
        '"': "&quot;",
        "'": "&#39;"
      }[c]));
    }

    function clientID() {
      let id = localStorage.getItem("viewer_client_id");
      if (!id) {
        id = (crypto.randomUUID && crypto.randomUUID()) || String(Date.now()) + Math.random().toString(16).slice(2);
        localStorage.setItem("viewer_client_id", id);
      }
      return id;
    }

    const state = {
      clientID: clientID(),
      patients: [],
      snapshot: null,
      docsOpen: false,
      ws: null,
      pollTimer: null,
      lastHash: "",
    };

    function setStatus(kind, text) {
      const dot = document.getElementById("dot");
      dot.classList.remove("ok", "bad");
      if (kind === "ok") dot.classList.add("ok");
      if (kind === "bad") dot.classList.add("bad");
      document.getElementById("statusText").textContent = text;
    }

    function showBanner(text) {
      const el = document.getElementById("banner");
      if (!text) { el.classList.remove("show"); return; }
      el.textContent = text;
      el.classList.add("show");
    }

    async function api(path, body) {
      const resp = await fetch(path, {
        method: body === undefined ? "GET" : "POST",
        headers: body === undefined ? undefined : { "Content-Type": "application/json" },
        body: body === undefined ? undefined : JSON.stringify(body),
        cache: "no-store",
      });
      const data = await resp.json().catch(() => null);
      if (!resp.ok) {
        throw new Error((data && data.error) || ("HTTP " + resp.status));
      }
      return data;
    }

    async function loadPatients() {
      const list = document.getElementById("patientList");
      try {
        const data = await api("/api/patients");
        state.patients = (data && data.patients) || [];
        showBanner("");
      } catch (err) {
        list.innerHTML = '<div class="note">Could not load patients.</div>';
        showBanner("Records service unreachable: " + err.message);
        return;
      }
      if (!state.patients.length) {
        list.innerHTML = '<div class="note">No patients found.</div>';
        return;
      }
      const active = state.snapshot && state.snapshot.patient;
      list.innerHTML = state.patients.map((p) =>
        '<div class="patient-item' + (p === active ? " active" : "") + '" data-patient="' + escapeHTML(p) + '">' + escapeHTML(p) + "</div>"
      ).join("");
    }

    async function selectPatient(name) {
      try {
        const data = await api("/api/select", { client_id: state.clientID, patient: name });
        state.docsOpen = false;
        applySnapshot(data.state);
        connectStream();
      } catch (err) {
        showBanner("Could not open patient: " + err.message);
      }
    }

    async function backToList() {
      try {
        await api("/api/deselect", { client_id: state.clientID });
      } catch (err) { /* already gone */ }
      state.docsOpen = false;
      applySnapshot(null);
    }

    function applySnapshot(snap) {
      if (snap && !snap.patient) snap = null;
      state.snapshot = snap;
      render();
    }

    // --- state stream -------------------------------------------------

    function connectStream() {
      if (state.ws) return;
      const proto = location.protocol === "https:" ? "wss:" : "ws:";
      let ws;
      try {
        ws = new WebSocket(proto + "//" + location.host + "/ws?client_id=" + encodeURIComponent(state.clientID));
      } catch {
        startPolling();
        return;
      }
      state.ws = ws;
      ws.onopen = () => { setStatus("ok", "Live"); stopPolling(); };
      ws.onmessage = (ev) => {
        let data;
        try { data = JSON.parse(ev.data); } catch { return; }
        if (!data || data.type === "pong" || data.error) return;
        applySnapshot(data);
      };
      ws.onclose = () => {
        if (state.ws === ws) state.ws = null;
        startPolling();
      };
      ws.onerror = () => { ws.close(); };
      if (state.pingTimer) clearInterval(state.pingTimer);
      state.pingTimer = setInterval(() => {
        if (state.ws && state.ws.readyState === WebSocket.OPEN) {
          state.ws.send(JSON.stringify({ type: "ping" }));
        }
      }, 30000);
    }

    function startPolling() {
      if (state.pollTimer) return;
      setStatus("", "Polling");
      state.pollTimer = setInterval(pollOnce, POLL_MS);
      pollOnce();
    }

    function stopPolling() {
      if (state.pollTimer) {
        clearInterval(state.pollTimer);
        state.pollTimer = null;
      }
    }

    async function pollOnce() {
      if (!state.snapshot) return;
      try {
        const data = await api("/api/state?client_id=" + encodeURIComponent(state.clientID));
        applySnapshot(data.state);
        setStatus("", "Polling");
      } catch (err) {
        setStatus("bad", "Offline");
      }
    }

    // --- rendering ----------------------------------------------------

    function render() {
      const snap = state.snapshot;
      const hash = JSON.stringify([snap, state.docsOpen]);
      if (hash === state.lastHash) return;
      state.lastHash = hash;

      document.getElementById("placeholder").style.display = snap ? "none" : "flex";
      document.getElementById("leftColumn").style.display = snap ? "flex" : "none";
      document.getElementById("rightColumn").style.display = snap ? "flex" : "none";
      document.getElementById("backBtn").style.display = snap ? "inline-block" : "none";
      document.getElementById("patientLabel").textContent = snap ? snap.patient : "";

      const active = snap && snap.patient;
      document.querySelectorAll(".patient-item").forEach((el) => {
        el.classList.toggle("active", el.dataset.patient === active);
      });

      if (!snap) {
        document.getElementById("reader").classList.remove("open");
        return;
      }
      renderSummary(snap.summary);
      renderChat(snap.chat);
      renderDocs(snap.documents);
      renderReader(snap.document);
    }

    function renderSummary(s) {
      const body = document.getElementById("summaryBody");
      const retry = document.getElementById("retryBtn");
      retry.style.display = s.phase === "error" ? "inline-block" : "none";
      if (s.phase === "idle" || s.phase === "loading") {
        body.innerHTML = '<div class="state-note">Loading summary...</div>';
        return;
      }
      if (s.phase === "error") {
        body.innerHTML = '<div class="state-note error">' + escapeHTML(s.error || "Summary unavailable.") + "</div>";
        return;
      }
      const sum = s.summary || {};
      body.innerHTML =
        '<div class="summary-section">' +
        "<h3>Medication Summary</h3><p>" + escapeHTML(sum.medication_summary) + "</p>" +
        "<h3>Lifestyle Recommendations</h3><p>" + escapeHTML(sum.lifestyle_recommendations) + "</p>" +
        "<h3>Condition Summary</h3><p>" + escapeHTML(sum.condition_summary) + "</p>" +
        "</div>";
    }

    function renderChat(chat) {
      const root = document.getElementById("messages");
      const msgs = (chat && chat.messages) || [];
      let html = "";
      for (const m of msgs) {
        const role = m.role === "user" ? "user" : "bot";
        const cls = "bubble" + (m.is_error ? " error" : "");
        html += '<div class="row ' + role + '"><div class="' + cls + '">' + escapeHTML(m.text) + "</div></div>";
      }
      if (chat && chat.pending) {
        html += '<div class="row bot"><div class="bubble typing"><span></span><span></span><span></span></div></div>';
      }
      if (!html) {
        html = '<div class="state-note">Ask a question about this patient’s records.</div>';
      }
      const prevScroll = root.scrollTop;
      const atBottom = (root.scrollHeight - root.clientHeight - prevScroll) < 40;
      root.innerHTML = html;
      if (atBottom) {
        root.scrollTop = root.scrollHeight;
      }
      const pending = !!(chat && chat.pending);
      document.getElementById("sendBtn").disabled = pending;
    }

    function renderDocs(docs) {
      const body = document.getElementById("docsBody");
      const btn = document.getElementById("docsBtn");
      btn.textContent = state.docsOpen ? "Refresh" : "Open";
      if (!state.docsOpen) {
        body.innerHTML = '<div class="state-note">Open to browse this patient’s documents.</div>';
        return;
      }
      if (docs.phase === "idle" || docs.phase === "loading") {
        body.innerHTML = '<div class="state-note">Loading documents...</div>';
        return;
      }
      if (docs.phase === "error") {
        body.innerHTML = '<div class="state-note error">' + escapeHTML(docs.error || "Could not load documents.") + " Use Refresh to try again.</div>";
        return;
      }
      const groups = docs.groups || [];
      if (!groups.length) {
        body.innerHTML = '<div class="state-note">No documents available.</div>';
        return;
      }
      const activePath = state.snapshot && state.snapshot.document && state.snapshot.document.path;
      let html = "";
      for (const g of groups) {
        html += '<div class="doc-group"><h3>' + escapeHTML(g.category) + "</h3>";
        for (const d of g.documents) {
          const cls = "doc-item" + (d.path === activePath ? " active" : "");
          html += '<div class="' + cls + '" data-path="' + escapeHTML(d.path) + '">' +
            "<span>" + escapeHTML(d.filename) + "</span>" +
            (d.classification ? '<span class="badge">' + escapeHTML(d.classification) + "</span>" : "") +
            "</div>";
        }
        html += "</div>";
      }
      body.innerHTML = html;
    }

    function renderReader(doc) {
      const reader = document.getElementById("reader");
      if (!doc || doc.phase === "idle") {
        reader.classList.remove("open");
        return;
      }
      reader.classList.add("open");
      const badge = document.getElementById("readerBadge");
      const title = document.getElementById("readerTitle");
      const content = document.getElementById("readerContent");
      title.textContent = (doc.path || "Document").split("/").pop();
      if (doc.classification) {
        badge.textContent = doc.classification;
        badge.style.display = "inline-block";
      } else {
        badge.style.display = "none";
      }
      if (doc.phase === "loading") {
        content.textContent = "Loading...";
      } else if (doc.phase === "error") {
        content.textContent = doc.error || "Could not load this document.";
      } else {
        content.textContent = doc.content || "";
      }
    }

    // --- actions ------------------------------------------------------

    async function sendChat() {
      const input = document.getElementById("chatInput");
      const text = input.value;
      if (!text.trim()) return;
      input.value = "";
      try {
        const data = await api("/api/chat", { client_id: state.clientID, text });
        applySnapshot(data.state);
      } catch (err) {
        showBanner("Could not send message: " + err.message);
      }
    }

    async function openDocs() {
      state.docsOpen = true;
      try {
        const data = await api("/api/documents/open", { client_id: state.clientID });
        applySnapshot(data.state);
      } catch (err) {
        showBanner("Could not load documents: " + err.message);
      }
    }

    async function selectDoc(path) {
      try {
        const data = await api("/api/documents/select", { client_id: state.clientID, path });
        applySnapshot(data.state);
      } catch (err) {
        showBanner("Could not open document: " + err.message);
      }
    }

    async function closeReader() {
      try {
        const data = await api("/api/documents/clear", { client_id: state.clientID });
        applySnapshot(data.state);
      } catch (err) {
        document.getElementById("reader").classList.remove("open");
      }
    }

    async function retrySummary() {
      try {
        const data = await api("/api/summary/retry", { client_id: state.clientID });
        applySnapshot(data.state);
      } catch (err) {
        showBanner("Could not retry: " + err.message);
      }
    }

    document.getElementById("patientList").addEventListener("click", (e) => {
      const item = e.target.closest(".patient-item");
      if (item) selectPatient(item.dataset.patient);
    });
    document.getElementById("docsBody").addEventListener("click", (e) => {
      const item = e.target.closest(".doc-item");
      if (item) selectDoc(item.dataset.path);
    });
    document.getElementById("sendBtn").addEventListener("click", sendChat);
    document.getElementById("chatInput").addEventListener("keydown", (e) => {
      if (e.key === "Enter") sendChat();
    });
    document.getElementById("docsBtn").addEventListener("click", openDocs);
    document.getElementById("readerClose").addEventListener("click", closeReader);
    document.getElementById("retryBtn").addEventListener("click", retrySummary);
    document.getElementById("backBtn").addEventListener("click", backToList);

    async function init() {
      setStatus("", "Connecting...");
      await loadPatients();
      try {
        const data = await api("/api/state?client_id=" + encodeURIComponent(state.clientID));
        if (data.state && data.state.patient) {
          applySnapshot(data.state);
          connectStream();
          return;
        }
      } catch { /* fresh client */ }
      setStatus("ok", "Ready");
      render();
    }

    init();
  </script>
</body>
</html>`

// Index renders the viewer single page UI.
// Route: GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(viewerHTML))
}
